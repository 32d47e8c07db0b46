package availability

import "time"

type ServiceKind string

const (
	ServiceFull     ServiceKind = "full"
	ServiceExterior ServiceKind = "exterior"
	ServiceInterior ServiceKind = "interior"
)

// Service is a bookable detail package and how long it occupies the bay.
type Service struct {
	Kind     ServiceKind   `json:"value"`
	Label    string        `json:"label"`
	Duration time.Duration `json:"-"`
}

var catalog = []Service{
	{Kind: ServiceFull, Label: "Interior & Exterior Detail", Duration: 3 * time.Hour},
	{Kind: ServiceExterior, Label: "Exterior Detail", Duration: 90 * time.Minute},
	{Kind: ServiceInterior, Label: "Interior Detail", Duration: 90 * time.Minute},
}

// Catalog returns a copy of the offered services.
func Catalog() []Service {
	out := make([]Service, len(catalog))
	copy(out, catalog)
	return out
}

func LookupService(kind ServiceKind) (Service, bool) {
	for _, s := range catalog {
		if s.Kind == kind {
			return s, true
		}
	}
	return Service{}, false
}
