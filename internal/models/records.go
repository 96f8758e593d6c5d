package models

// SourceRecord is one catalog feed record as delivered to the pipeline. The
// enrichment payloads are optional and were fetched ahead of time.
type SourceRecord struct {
	Source          string           `json:"source" parquet:"source"`
	Title           string           `json:"title" parquet:"title"`
	RightsStatement *string          `json:"rights_stmt,omitempty" parquet:"rights_stmt,optional"`
	Language        string           `json:"language,omitempty" parquet:"language"`
	Identifiers     []Identifier     `json:"identifiers" parquet:"identifiers,list"`
	Entities        []Entity         `json:"entities,omitempty" parquet:"entities,list"`
	Editions        []Edition        `json:"editions,omitempty" parquet:"editions,list"`
	Subjects        []Subject        `json:"subjects,omitempty" parquet:"subjects,list"`
	Lookup          *LookupPayload   `json:"lookup,omitempty" parquet:"lookup,optional"`
	Classify        *ClassifyPayload `json:"classify,omitempty" parquet:"classify,optional"`
}

// LookupPayload is the bibliographic-enrichment response for a record.
type LookupPayload struct {
	Authors     []LookupAuthor `json:"authors,omitempty" parquet:"authors,list"`
	Identifiers []Identifier   `json:"identifiers,omitempty" parquet:"identifiers,list"`
	Language    string         `json:"language,omitempty" parquet:"language"`
}

// LookupAuthor is a contributor description from the enrichment service.
// SameAs holds authority URLs such as http://viaf.org/viaf/27068555.
type LookupAuthor struct {
	Name     string   `json:"name" parquet:"name"`
	SortName string   `json:"sort_name,omitempty" parquet:"sort_name"`
	SameAs   []string `json:"same_as,omitempty" parquet:"same_as,list"`
}

// ClassifyPayload is the union-catalog classification response for a record.
type ClassifyPayload struct {
	WorkTitle string    `json:"work_title,omitempty" parquet:"work_title"`
	OWI       string    `json:"owi,omitempty" parquet:"owi"`
	Authors   []Entity  `json:"authors,omitempty" parquet:"authors,list"`
	Editions  []Edition `json:"editions,omitempty" parquet:"editions,list"`
}

// Enrichment stage names recorded on an EnrichedRecord.
const (
	StageLookup   = "lookup"
	StageClassify = "classify"
)

// EnrichedRecord is a SourceRecord with the enrichment payloads applied.
type EnrichedRecord struct {
	Source          string
	Title           string
	RightsStatement *string
	Language        string
	Identifiers     []Identifier
	Entities        []Entity
	Editions        []Edition
	Subjects        []Subject
	Stages          []string
}
