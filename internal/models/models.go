package models

// Identifier types understood by the resolvers.
const (
	IDGutenberg = "gutenberg"
	IDOCLC      = "oclc"
	IDOWI       = "owi"
	IDISBN      = "isbn"
	IDISSN      = "issn"
	IDLCCN      = "lccn"
)

// DefaultLanguage is applied when no source supplies a language.
const DefaultLanguage = "en"

// DefaultRole is applied to contributors that arrive without a role.
const DefaultRole = "author"

// Identifier is a typed external identifier such as {isbn, 9780140430721}.
type Identifier struct {
	Type  string `json:"type" yaml:"type" parquet:"type"`
	Value string `json:"identifier" yaml:"identifier" parquet:"identifier"`
}

// Entity is a creator or contributor together with its role on a Work.
type Entity struct {
	Name      string   `json:"name" yaml:"name" parquet:"name"`
	SortName  string   `json:"sort_name,omitempty" yaml:"sort_name,omitempty" parquet:"sort_name"`
	VIAF      *string  `json:"viaf,omitempty" yaml:"viaf,omitempty" parquet:"viaf,optional"`
	LCNAF     *string  `json:"lcnaf,omitempty" yaml:"lcnaf,omitempty" parquet:"lcnaf,optional"`
	Wikipedia *string  `json:"wikipedia,omitempty" yaml:"wikipedia,omitempty" parquet:"wikipedia,optional"`
	Birth     *int     `json:"birth,omitempty" yaml:"birth,omitempty" parquet:"birth,optional"`
	Death     *int     `json:"death,omitempty" yaml:"death,omitempty" parquet:"death,optional"`
	Aliases   []string `json:"aliases,omitempty" yaml:"aliases,omitempty" parquet:"aliases,list"`
	Role      string   `json:"role,omitempty" yaml:"role,omitempty" parquet:"role"`
}

// Item is a concrete digital copy of an Edition.
type Item struct {
	URL      string `json:"url" yaml:"url" parquet:"url"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty" parquet:"path"`
	Source   string `json:"source,omitempty" yaml:"source,omitempty" parquet:"source"`
	Size     int64  `json:"size,omitempty" yaml:"size,omitempty" parquet:"size"`
	Modified string `json:"modified,omitempty" yaml:"modified,omitempty" parquet:"modified"`
}

// Edition is a specific published manifestation of a Work.
type Edition struct {
	Title       string       `json:"title,omitempty" yaml:"title,omitempty" parquet:"title"`
	PubPlace    *string      `json:"pub_place,omitempty" yaml:"pub_place,omitempty" parquet:"pub_place,optional"`
	Publisher   *string      `json:"publisher,omitempty" yaml:"publisher,omitempty" parquet:"publisher,optional"`
	Year        *int         `json:"year,omitempty" yaml:"year,omitempty" parquet:"year,optional"`
	Extent      *string      `json:"extent,omitempty" yaml:"extent,omitempty" parquet:"extent,optional"`
	Notes       *string      `json:"notes,omitempty" yaml:"notes,omitempty" parquet:"notes,optional"`
	Language    string       `json:"language,omitempty" yaml:"language,omitempty" parquet:"language"`
	Identifiers []Identifier `json:"identifiers,omitempty" yaml:"identifiers,omitempty" parquet:"identifiers,list"`
	Items       []Item       `json:"items,omitempty" yaml:"items,omitempty" parquet:"items,list"`
}

// Subject is a controlled or uncontrolled subject heading.
type Subject struct {
	Authority string  `json:"authority" yaml:"authority" parquet:"authority"`
	URI       *string `json:"uri,omitempty" yaml:"uri,omitempty" parquet:"uri,optional"`
	Text      string  `json:"subject" yaml:"subject" parquet:"subject"`
	Weight    float64 `json:"weight,omitempty" yaml:"weight,omitempty" parquet:"-"`
}

// CanonicalWork is a validated record ready for fusion.
type CanonicalWork struct {
	Title           string       `json:"title" yaml:"title"`
	RightsStatement *string      `json:"rights_stmt,omitempty" yaml:"rights_stmt,omitempty"`
	Language        string       `json:"language" yaml:"language"`
	Identifiers     []Identifier `json:"identifiers" yaml:"identifiers"`
	Entities        []Entity     `json:"entities,omitempty" yaml:"entities,omitempty"`
	Editions        []Edition    `json:"editions,omitempty" yaml:"editions,omitempty"`
	Subjects        []Subject    `json:"subjects,omitempty" yaml:"subjects,omitempty"`
}

// Work is the stored projection of a fused Work.
type Work struct {
	ID            int64  `json:"id" yaml:"id"`
	UUID          string `json:"uuid" yaml:"uuid"`
	CanonicalWork `yaml:",inline"`
}
