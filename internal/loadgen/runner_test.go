package loadgen

import "testing"

func TestProducerTopicIsUnchangedForSingleProducer(t *testing.T) {
	if got := producerTopic("seqbench.smoke.v1", 0, 1); got != "seqbench.smoke.v1" {
		t.Errorf("producerTopic = %q, want unchanged base topic", got)
	}
}

func TestProducerTopicIsDisjointAcrossProducers(t *testing.T) {
	const base = "seqbench.sustained.v1"
	seen := make(map[string]bool)
	for i := 0; i < 8; i++ {
		topic := producerTopic(base, i, 8)
		if seen[topic] {
			t.Fatalf("producer %d reused topic %q already assigned to another producer", i, topic)
		}
		seen[topic] = true
	}
}
