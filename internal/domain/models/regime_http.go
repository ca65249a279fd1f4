package models

// Requests for regime HTTP endpoints. Defined in domain for consistency and reuse.

type CurrentRegimeRequest struct {
	Series string `query:"series" json:"series" default:"us_core" validate:"required"`
}

type RegimeWindowRequest struct {
	Series string `query:"series" json:"series" default:"us_core" validate:"required"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	N      int    `query:"n" json:"n" default:"260" validate:"gte=1,lte=5000"`
}

type ClassifyRequest struct {
	Series   string         `json:"series" default:"us_core" validate:"required"`
	Week     string         `json:"week"`
	Features map[string]any `json:"features" validate:"required"`
}
