package fleet

// Route is a static bus route definition shown on dashboards.
type Route struct {
	RouteID string `json:"route_id" bson:"routeid" groups:"basic"`

	Name        string `json:"name" bson:"name" groups:"basic"`
	Description string `json:"description,omitempty" bson:"description,omitempty" groups:"basic"`
}

// RouteStop is a stop along a route.
type RouteStop struct {
	StopID  string `json:"stop_id" bson:"stopid" groups:"basic"`
	RouteID string `json:"route_id" bson:"routeid" groups:"basic"`

	Name     string   `json:"name" bson:"name" groups:"basic"`
	Location Location `json:"location" bson:"location" groups:"basic"`

	Sequence int `json:"sequence" bson:"sequence" groups:"basic"`
}
