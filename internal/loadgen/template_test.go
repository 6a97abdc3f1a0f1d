package loadgen

import "testing"

func TestLookupTemplateKnownName(t *testing.T) {
	tpl, err := LookupTemplate("smoke")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tpl.Topic == "" || tpl.MessagesPerProducer <= 0 {
		t.Fatalf("smoke template looks unconfigured: %+v", tpl)
	}
}

func TestLookupTemplateUnknownName(t *testing.T) {
	if _, err := LookupTemplate("does-not-exist"); err == nil {
		t.Fatalf("expected an error for an unknown template name")
	}
}

func TestToRunnerConfigCarriesGroupID(t *testing.T) {
	tpl, err := LookupTemplate("smoke")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := tpl.ToRunnerConfig("my-group")
	if cfg.GroupID != "my-group" {
		t.Errorf("GroupID = %q, want my-group", cfg.GroupID)
	}
	if cfg.Topic != tpl.Topic {
		t.Errorf("Topic = %q, want %q", cfg.Topic, tpl.Topic)
	}
}
