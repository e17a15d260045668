package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/timedpid/internal/dynamo"
	"github.com/san-kum/timedpid/internal/physics"
)

var plants = map[string]func() dynamo.Plant{
	"heater":      func() dynamo.Plant { return physics.NewHeater() },
	"spring_mass": func() dynamo.Plant { return physics.NewSpringMass() },
	"motor":       func() dynamo.Plant { return physics.NewMotor() },
}

// GetPlant returns a fresh plant with default parameters.
func GetPlant(name string) (dynamo.Plant, error) {
	fn, ok := plants[name]
	if !ok {
		return nil, fmt.Errorf("unknown plant: %s", name)
	}
	return fn(), nil
}

func ListPlants() []string {
	names := make([]string, 0, len(plants))
	for name := range plants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
