// Package domain models evacuation routes from a user's position to a flood
// shelter.
//
// # Routing Service Conventions
//
// Road routes come from an OSRM-compatible route service
// (https://project-osrm.org/docs/v5.24.0/api/#route-service).
//
// Coordinate order:
//
//	OSRM uses [lng, lat] everywhere: in the request path
//	("{lng},{lat};{lng},{lat}") and in GeoJSON geometry.
//	This package uses {lat, lng}; adapters convert at the boundary.
//
// Profiles:
//
//	car, motorcycle  →  "driving"
//	walk             →  "foot"
//
//	Motorcycles share the driving profile. Their duration is scaled by 0.85
//	afterwards to model lane filtering in congestion.
//
// Units:
//
//	Route distance arrives in metres and is reported in km to one decimal.
//	Route duration arrives in seconds and is reported in whole minutes,
//	never less than one.
//
// Maneuvers:
//
//	Each step carries a maneuver type ("turn", "fork", "roundabout", ...), an
//	optional modifier ("left", "slight right", "uturn", ...) and the name of
//	the street travelled after it. [FormatManeuver] maps these to English
//	instructions. Unknown values degrade to "Continue".
//
// # Fallback Routes
//
// When the routing service cannot be reached, [FallbackRoute] produces a
// 13-point curved path between the endpoints. Its length is the haversine sum
// of its segments (R = 6371 km) and its duration uses a per-mode average
// speed: car 50 km/h, motorcycle 45 km/h, walk 5 km/h.
package domain
