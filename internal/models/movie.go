package models

import "time"

// MovieField enumerates the editable attributes of a movie record. The set is
// closed; extending it means adding a variant here and a column below.
type MovieField string

const (
	FieldTitle         MovieField = "TITLE"
	FieldOriginalTitle MovieField = "ORIGINAL_TITLE"
	FieldSynopsis      MovieField = "SYNOPSIS"
	FieldGenre         MovieField = "GENRE"
	FieldCountry       MovieField = "COUNTRY"
	FieldLanguage      MovieField = "LANGUAGE"
	FieldReleaseDate   MovieField = "RELEASE_DATE"
	FieldBudget        MovieField = "BUDGET"
	FieldBoxOffice     MovieField = "BOX_OFFICE"
	FieldWebsite       MovieField = "WEBSITE"
)

// movieFieldColumns maps every field variant onto its movies-table column.
// The merge step interpolates these names into UPDATE statements, so values
// must stay a fixed allow-list, never caller input.
var movieFieldColumns = map[MovieField]string{
	FieldTitle:         "title",
	FieldOriginalTitle: "original_title",
	FieldSynopsis:      "synopsis",
	FieldGenre:         "genre",
	FieldCountry:       "country",
	FieldLanguage:      "language",
	FieldReleaseDate:   "release_date",
	FieldBudget:        "budget",
	FieldBoxOffice:     "box_office",
	FieldWebsite:       "website",
}

// Valid reports whether the field belongs to the closed set.
func (f MovieField) Valid() bool {
	_, ok := movieFieldColumns[f]
	return ok
}

// Column returns the movies-table column backing the field.
func (f MovieField) Column() (string, bool) {
	col, ok := movieFieldColumns[f]
	return col, ok
}

// MovieFields returns all known field variants.
func MovieFields() []MovieField {
	fields := make([]MovieField, 0, len(movieFieldColumns))
	for f := range movieFieldColumns {
		fields = append(fields, f)
	}
	return fields
}

// Movie represents the canonical movie record. Field values accepted through
// the contribution workflow are stored as opaque text; only the verification
// engine's accept path mutates them.
type Movie struct {
	ID            string     `db:"id" json:"id"`
	Title         string     `db:"title" json:"title"`
	OriginalTitle *string    `db:"original_title" json:"original_title,omitempty"`
	Synopsis      *string    `db:"synopsis" json:"synopsis,omitempty"`
	Genre         *string    `db:"genre" json:"genre,omitempty"`
	Country       *string    `db:"country" json:"country,omitempty"`
	Language      *string    `db:"language" json:"language,omitempty"`
	ReleaseDate   *string    `db:"release_date" json:"release_date,omitempty"`
	Budget        *string    `db:"budget" json:"budget,omitempty"`
	BoxOffice     *string    `db:"box_office" json:"box_office,omitempty"`
	Website       *string    `db:"website" json:"website,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// MovieListQuery captures catalog listing criteria.
type MovieListQuery struct {
	Search   string
	Page     int
	PageSize int
}

// FieldValue returns the current value of the given field, or "" when unset.
func (m *Movie) FieldValue(field MovieField) string {
	switch field {
	case FieldTitle:
		return m.Title
	case FieldOriginalTitle:
		return deref(m.OriginalTitle)
	case FieldSynopsis:
		return deref(m.Synopsis)
	case FieldGenre:
		return deref(m.Genre)
	case FieldCountry:
		return deref(m.Country)
	case FieldLanguage:
		return deref(m.Language)
	case FieldReleaseDate:
		return deref(m.ReleaseDate)
	case FieldBudget:
		return deref(m.Budget)
	case FieldBoxOffice:
		return deref(m.BoxOffice)
	case FieldWebsite:
		return deref(m.Website)
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
