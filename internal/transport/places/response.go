package places

import (
	"github.com/kailas-cloud/careatlas/internal/domain/geo"
	"github.com/kailas-cloud/careatlas/internal/domain/lookup"
	"github.com/kailas-cloud/careatlas/internal/domain/raw"
)

// apiResponse covers the search, details and autocomplete response shapes.
type apiResponse struct {
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Results      []apiPlace      `json:"results,omitempty"`
	Result       *apiPlace       `json:"result,omitempty"`
	Predictions  []apiPrediction `json:"predictions,omitempty"`
}

type apiPlace struct {
	PlaceID              string   `json:"place_id"`
	Name                 string   `json:"name"`
	FormattedAddress     string   `json:"formatted_address,omitempty"`
	Vicinity             string   `json:"vicinity,omitempty"`
	Geometry             *apiGeom `json:"geometry,omitempty"`
	Rating               *float64 `json:"rating,omitempty"`
	UserRatingsTotal     *int     `json:"user_ratings_total,omitempty"`
	Types                []string `json:"types,omitempty"`
	BusinessStatus       string   `json:"business_status,omitempty"`
	Website              string   `json:"website,omitempty"`
	FormattedPhoneNumber string   `json:"formatted_phone_number,omitempty"`
	OpeningHours         *struct {
		OpenNow *bool `json:"open_now,omitempty"`
	} `json:"opening_hours,omitempty"`
}

type apiGeom struct {
	Location geo.Point `json:"location"`
}

type apiPrediction struct {
	PlaceID              string   `json:"place_id"`
	Description          string   `json:"description"`
	Types                []string `json:"types,omitempty"`
	StructuredFormatting struct {
		MainText      string `json:"main_text"`
		SecondaryText string `json:"secondary_text"`
	} `json:"structured_formatting"`
}

func (r *apiResponse) places(kind lookup.Kind) []raw.RemotePlace {
	switch kind {
	case lookup.PlaceDetails:
		if r.Result == nil {
			return []raw.RemotePlace{}
		}
		return []raw.RemotePlace{r.Result.toRaw()}
	case lookup.Autocomplete:
		out := make([]raw.RemotePlace, 0, len(r.Predictions))
		for i := range r.Predictions {
			out = append(out, r.Predictions[i].toRaw())
		}
		return out
	default:
		out := make([]raw.RemotePlace, 0, len(r.Results))
		for i := range r.Results {
			out = append(out, r.Results[i].toRaw())
		}
		return out
	}
}

func (p *apiPlace) toRaw() raw.RemotePlace {
	rp := raw.RemotePlace{
		PlaceID:          p.PlaceID,
		Name:             p.Name,
		FormattedAddress: p.FormattedAddress,
		Vicinity:         p.Vicinity,
		Rating:           p.Rating,
		UserRatingsTotal: p.UserRatingsTotal,
		Types:            p.Types,
		Website:          p.Website,
		Phone:            p.FormattedPhoneNumber,
		BusinessStatus:   p.BusinessStatus,
	}
	if p.Geometry != nil {
		loc := p.Geometry.Location
		rp.Location = &loc
	}
	if p.OpeningHours != nil {
		rp.OpenNow = p.OpeningHours.OpenNow
	}
	return rp
}

func (p *apiPrediction) toRaw() raw.RemotePlace {
	name := p.StructuredFormatting.MainText
	if name == "" {
		name = p.Description
	}
	return raw.RemotePlace{
		PlaceID:          p.PlaceID,
		Name:             name,
		FormattedAddress: p.StructuredFormatting.SecondaryText,
		Types:            p.Types,
		Description:      p.Description,
	}
}
