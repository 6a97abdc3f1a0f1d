package loadgen

import "fmt"

// Template names a canned workload shape so the CLI can offer a short list
// of presets instead of requiring every flag to be set by hand. This
// templates workload *parameters* only; message payloads stay the fixed
// size/shape described by the template, not an arbitrary schema (schema
// decoding is out of scope here, same as for the ingest bridge).
type Template struct {
	Name                string
	Topic               string
	NumProducers        int
	MessagesPerProducer int
	MessageSize         int
	Rate                int
}

func (t Template) ToRunnerConfig(groupID string) RunnerConfig {
	return RunnerConfig{
		Topic:               t.Topic,
		NumProducers:        t.NumProducers,
		MessagesPerProducer: t.MessagesPerProducer,
		MessageSize:         t.MessageSize,
		Rate:                t.Rate,
		GroupID:             groupID,
	}
}

// templates name canned workload shapes; NumProducers > 1 drives multiple
// topics (one per producer, see producerTopic), each with its own
// consumer and Tracker, rather than racing several producers onto a
// single topic.
var templates = map[string]Template{
	"smoke": {
		Name:                "smoke",
		Topic:               "seqbench.smoke.v1",
		NumProducers:        1,
		MessagesPerProducer: 100,
		MessageSize:         128,
		Rate:                50,
	},
	"reorder-burst": {
		Name:                "reorder-burst",
		Topic:               "seqbench.reorder-burst.v1",
		NumProducers:        4,
		MessagesPerProducer: 5000,
		MessageSize:         256,
		Rate:                0,
	},
	"sustained": {
		Name:                "sustained",
		Topic:               "seqbench.sustained.v1",
		NumProducers:        8,
		MessagesPerProducer: 50000,
		MessageSize:         512,
		Rate:                1000,
	},
}

// LookupTemplate resolves a named preset, returning an error that lists
// the available names on a miss.
func LookupTemplate(name string) (Template, error) {
	t, ok := templates[name]
	if !ok {
		return Template{}, fmt.Errorf("unknown workload template %q (available: %v)", name, templateNames())
	}
	return t, nil
}

func templateNames() []string {
	names := make([]string, 0, len(templates))
	for n := range templates {
		names = append(names, n)
	}
	return names
}
