// Package couchdb holds the document-store collaborator surface: the design
// document contract for counting entities, and a thin REST client that
// installs it and queries its view.
package couchdb

// TypeDiscriminatorField is the document field that carries the document's
// kind. The $ prefix keeps it clear of mapped entity columns.
const TypeDiscriminatorField = "$type"

// EntityTypeName is the discriminator value of entity documents.
const EntityTypeName = "entity"

// EntitiesDocumentID is the name under which the entities design document is
// installed; its document _id is "_design/" + EntitiesDocumentID.
const EntitiesDocumentID = "entities"

// EntitiesNumberViewName is the view that counts entity documents.
const EntitiesNumberViewName = "number"

// EntitiesNumberViewPath is the database-relative path of the counting view.
const EntitiesNumberViewPath = "_design/" + EntitiesDocumentID + "/_view/" + EntitiesNumberViewName

// entitiesNumberMap emits 1 for every document whose discriminator marks it
// as an entity.
const entitiesNumberMap = "function(doc) {if(doc." + TypeDiscriminatorField +
	" == \"" + EntityTypeName + "\"){  emit(null, 1); }}"

// entitiesNumberReduce counts the rows the map function emitted.
const entitiesNumberReduce = "function(key,value){ return value.length; }"

// View is one CouchDB view definition. Reduce may be empty.
type View struct {
	Map    string `json:"map"`
	Reduce string `json:"reduce,omitempty"`
}

// DesignDocument is a CouchDB design document: a named set of views plus the
// language they are written in.
type DesignDocument struct {
	ID       string          `json:"_id"`
	Rev      string          `json:"_rev,omitempty"`
	Language string          `json:"language"`
	Views    map[string]View `json:"views"`
}

// NewEntitiesDesignDocument builds the design document whose "number" view
// returns the count of entity documents in the database.
func NewEntitiesDesignDocument() *DesignDocument {
	return &DesignDocument{
		ID:       "_design/" + EntitiesDocumentID,
		Language: "javascript",
		Views: map[string]View{
			EntitiesNumberViewName: {
				Map:    entitiesNumberMap,
				Reduce: entitiesNumberReduce,
			},
		},
	}
}
