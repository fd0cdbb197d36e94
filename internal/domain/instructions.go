package domain

import (
	"fmt"
	"math"
)

// ArrivalInstruction is the text of the terminal step of every route.
const ArrivalInstruction = "Arrive at shelter — you are safe"

// Maneuver types that render without a distance suffix.
const (
	maneuverDepart = "depart"
	maneuverArrive = "arrive"
)

// FormatManeuver renders an upstream maneuver as an instruction. Unknown
// types and modifiers fall back to a plain "Continue" phrasing.
func FormatManeuver(maneuverType, modifier, street string) string {
	onto := ""
	if street != "" {
		onto = " onto " + street
	}

	switch maneuverType {
	case maneuverDepart:
		return "Depart" + onto
	case maneuverArrive:
		return ArrivalInstruction
	case "turn":
		return formatTurn(modifier) + onto
	case "continue":
		return "Continue straight" + onto
	case "merge":
		return "Merge" + onto
	case "new name":
		return "Continue" + onto
	case "fork":
		switch modifier {
		case "left":
			return "Keep left" + onto
		case "right":
			return "Keep right" + onto
		}
		return "Continue at fork" + onto
	case "end of road":
		switch modifier {
		case "left":
			return "Turn left at end of road" + onto
		case "right":
			return "Turn right at end of road" + onto
		}
		return "Continue at end of road" + onto
	case "roundabout", "rotary":
		return "Enter roundabout, then exit" + onto
	case "exit roundabout", "exit rotary":
		return "Exit roundabout" + onto
	default:
		return "Continue" + onto
	}
}

func formatTurn(modifier string) string {
	switch modifier {
	case "left":
		return "Turn left"
	case "right":
		return "Turn right"
	case "slight left":
		return "Turn slightly left"
	case "slight right":
		return "Turn slightly right"
	case "sharp left":
		return "Sharp left"
	case "sharp right":
		return "Sharp right"
	case "uturn":
		return "Make a U-turn"
	default:
		return "Turn"
	}
}

// FormatDistance renders metres for display: "950 m" below a kilometre,
// "1.5 km" otherwise. Halves round up, so 1250 m renders as "1.3 km".
func FormatDistance(meters float64) string {
	if meters >= 1000 {
		return fmt.Sprintf("%.1f km", math.Round(meters/100)/10)
	}
	return fmt.Sprintf("%d m", int(math.Round(meters)))
}

// BuildSteps turns the upstream legs into navigation steps. The returned
// list always ends with an arrival step; one is appended at dest when the
// last upstream maneuver is not an arrival. An empty input yields nil.
//
// Maneuvers without a location inherit the previous step's position,
// starting from origin.
func BuildSteps(legs []RoadLeg, origin, dest Coordinates) []NavigationStep {
	var steps []NavigationStep
	last := origin

	for _, leg := range legs {
		for _, s := range leg.Steps {
			pos := last
			if s.Maneuver.Location != nil {
				pos = *s.Maneuver.Location
			}
			last = pos

			instruction := FormatManeuver(s.Maneuver.Type, s.Maneuver.Modifier, s.Name)
			if s.Maneuver.Type != maneuverDepart && s.Maneuver.Type != maneuverArrive {
				instruction += " — " + FormatDistance(s.Distance)
			}

			steps = append(steps, NavigationStep{
				Instruction: instruction,
				Distance:    roundMeters(s.Distance),
				Position:    pos,
			})
		}
	}

	if len(steps) > 0 && !steps[len(steps)-1].IsArrival() {
		steps = append(steps, arrivalStep(dest))
	}
	return steps
}

func arrivalStep(at Coordinates) NavigationStep {
	return NavigationStep{Instruction: ArrivalInstruction, Distance: 0, Position: at}
}

func roundMeters(m float64) int {
	if m <= 0 {
		return 0
	}
	return int(math.Round(m))
}
