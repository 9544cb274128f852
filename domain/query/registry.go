package query

import (
	"fmt"
	"math"
)

// Endpoint identifiers.
const (
	EndpointPictureOfDay     = "picture-of-day"
	EndpointRoverPhotos      = "rover-photos"
	EndpointNearEarthObjects = "near-earth-objects"
	EndpointEarthImaging     = "earth-imaging"
)

// MaxNEORangeDays is the widest start/end window the NEO feed accepts.
const MaxNEORangeDays = 7

var (
	Rovers     = []string{"curiosity", "opportunity", "spirit", "perseverance"}
	Cameras    = []string{"fhaz", "rhaz", "mast", "chemcam", "mahli", "mardi", "navcam", "pancam", "minites"}
	ImageTypes = []string{"natural", "enhanced"}
)

var registry = mustBuild(
	Schema{
		Endpoint: EndpointPictureOfDay,
		Upstream: "/planetary/apod",
		Summary:  "Astronomy Picture of the Day",
		Fields: []Field{
			{Name: "date", Type: FieldTypeDate},
			{Name: "start_date", Type: FieldTypeDate},
			{Name: "end_date", Type: FieldTypeDate},
			{Name: "count", Type: FieldTypeInt, Min: bound(1), Max: bound(100)},
			{Name: "thumbs", Type: FieldTypeBool},
		},
		Rules: []Rule{
			excludes("date_range_exclusive",
				"Cannot use date parameter with start_date or end_date",
				"date", "start_date", "end_date"),
			excludes("count_date_exclusive",
				"Cannot use count parameter with date parameters",
				"count", "date", "start_date", "end_date"),
		},
	},
	Schema{
		Endpoint: EndpointRoverPhotos,
		Upstream: "/mars-photos/api/v1/rovers/{rover}/photos",
		Summary:  "Mars Rover Photos",
		Fields: []Field{
			{Name: "rover", Type: FieldTypeEnum, Required: true, Values: Rovers, PathParam: true},
			{Name: "sol", Type: FieldTypeInt, Min: bound(0)},
			{Name: "earth_date", Type: FieldTypeDate},
			{Name: "camera", Type: FieldTypeEnum, Values: Cameras},
			{Name: "page", Type: FieldTypeInt, Min: bound(1)},
		},
		Rules: []Rule{
			excludes("sol_earth_date_exclusive",
				"Cannot use both sol and earth_date parameters",
				"sol", "earth_date"),
		},
		Defaults: []Default{
			fixed("sol", IntValue(DefaultSol), "earth_date"),
		},
	},
	Schema{
		Endpoint: EndpointNearEarthObjects,
		Upstream: "/neo/rest/v1/feed",
		Summary:  "Near Earth Objects",
		Fields: []Field{
			{Name: "start_date", Type: FieldTypeDate},
			{Name: "end_date", Type: FieldTypeDate},
			{Name: "detailed", Type: FieldTypeBool},
		},
		Rules: []Rule{
			{Name: "date_range_max", Check: maxRange("start_date", "end_date", MaxNEORangeDays)},
		},
		Defaults: []Default{
			dateWindow("start_date", "end_date", DefaultNEODays),
		},
	},
	Schema{
		Endpoint: EndpointEarthImaging,
		Upstream: "/EPIC/api/{type}",
		Summary:  "Earth Polychromatic Imaging Camera",
		Fields: []Field{
			{Name: "type", Type: FieldTypeEnum, Values: ImageTypes, PathParam: true},
			{Name: "date", Type: FieldTypeDate},
		},
		Defaults: []Default{
			fixed("type", StringValue(FieldTypeEnum, DefaultImageType)),
		},
	},
)

type schemaSet struct {
	order   []string
	schemas map[string]Schema
}

func mustBuild(schemas ...Schema) schemaSet {
	set := schemaSet{schemas: make(map[string]Schema, len(schemas))}
	for _, s := range schemas {
		if err := s.check(); err != nil {
			panic(fmt.Sprintf("query: invalid schema: %v", err))
		}
		if _, dup := set.schemas[s.Endpoint]; dup {
			panic(fmt.Sprintf("query: duplicate schema %q", s.Endpoint))
		}
		set.order = append(set.order, s.Endpoint)
		set.schemas[s.Endpoint] = s
	}
	return set
}

// Lookup returns the schema registered for endpoint.
func Lookup(endpoint string) (Schema, bool) {
	s, ok := registry.schemas[endpoint]
	return s, ok
}

// Endpoints returns the registered endpoint ids in declaration order.
func Endpoints() []string {
	out := make([]string, len(registry.order))
	copy(out, registry.order)
	return out
}

// excludes fails when field is present together with any of others.
func excludes(name, msg, field string, others ...string) Rule {
	return Rule{
		Name: name,
		Check: func(p Params) string {
			if !p.Has(field) {
				return ""
			}
			for _, o := range others {
				if p.Has(o) {
					return msg
				}
			}
			return ""
		},
	}
}

// maxRange fails when both dates are present and lie more than days apart.
// Dates that are not real calendar dates are left for the upstream to reject.
func maxRange(startField, endField string, days int) func(Params) string {
	return func(p Params) string {
		start, okStart := p.Date(startField)
		end, okEnd := p.Date(endField)
		if !okStart || !okEnd {
			return ""
		}
		diff := math.Abs(end.Sub(start).Hours() / 24)
		if math.Ceil(diff) > float64(days) {
			return fmt.Sprintf("Date range cannot exceed %d days", days)
		}
		return ""
	}
}
