package dto

// CreateMovieRequest payload for registering a new canonical movie record.
type CreateMovieRequest struct {
	Title         string `json:"title" validate:"required"`
	OriginalTitle string `json:"original_title"`
	Synopsis      string `json:"synopsis"`
	Genre         string `json:"genre"`
	Country       string `json:"country"`
	Language      string `json:"language"`
	ReleaseDate   string `json:"release_date"`
	Budget        string `json:"budget"`
	BoxOffice     string `json:"box_office"`
	Website       string `json:"website"`
}

// MovieQuery captures listing filters for the movie catalog.
type MovieQuery struct {
	Search   string
	Page     int
	PageSize int
}
