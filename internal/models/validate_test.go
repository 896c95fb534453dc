package models

import "testing"

func validPledge() PledgePayload {
	return PledgePayload{
		Name:            "Jane Volunteer",
		Contact:         "jane@example.org",
		ContactNumber:   "+91 98765 43210",
		ResourceType:    ResourceFood,
		ResourceDetails: "50 canned meals",
		Quantity:        5,
	}
}

func validIncident() IncidentPayload {
	return IncidentPayload{
		Status:       IncidentStatusUnverified,
		Type:         IncidentFlood,
		PhotoDataURI: "data:image/jpeg;base64,AAAA",
		Latitude:     19.07,
		Longitude:    72.87,
	}
}

func TestPledgeValidateAccepts(t *testing.T) {
	p := validPledge()
	if err := p.Validate(); err != nil {
		t.Fatalf("Expected valid pledge, got %v", err)
	}

	lat, lon := 19.07, 72.87
	p.Latitude = &lat
	p.Longitude = &lon
	if err := p.Validate(); err != nil {
		t.Fatalf("Expected pledge with location to be valid, got %v", err)
	}
}

func TestPledgeValidateRejects(t *testing.T) {
	lat := 19.07
	badLat := 120.0
	lon := 72.87

	cases := []struct {
		name   string
		mutate func(*PledgePayload)
	}{
		{"short name", func(p *PledgePayload) { p.Name = "J" }},
		{"blank name", func(p *PledgePayload) { p.Name = "   " }},
		{"bad email", func(p *PledgePayload) { p.Contact = "not-an-email" }},
		{"bad phone", func(p *PledgePayload) { p.ContactNumber = "call me" }},
		{"unknown resource type", func(p *PledgePayload) { p.ResourceType = "Gold" }},
		{"short details", func(p *PledgePayload) { p.ResourceDetails = "abc" }},
		{"zero quantity", func(p *PledgePayload) { p.Quantity = 0 }},
		{"negative quantity", func(p *PledgePayload) { p.Quantity = -3 }},
		{"latitude without longitude", func(p *PledgePayload) { p.Latitude = &lat }},
		{"longitude without latitude", func(p *PledgePayload) { p.Longitude = &lon }},
		{"latitude out of range", func(p *PledgePayload) {
			p.Latitude = &badLat
			p.Longitude = &lon
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPledge()
			tc.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Errorf("Expected validation error for %s", tc.name)
			}
		})
	}
}

func TestIncidentValidateAccepts(t *testing.T) {
	p := validIncident()
	if err := p.Validate(); err != nil {
		t.Fatalf("Expected valid incident, got %v", err)
	}

	audio := "data:audio/webm;base64,BBBB"
	p.AudioDataURI = &audio
	if err := p.Validate(); err != nil {
		t.Fatalf("Expected incident with audio to be valid, got %v", err)
	}

	empty := ""
	p.AudioDataURI = &empty
	if err := p.Validate(); err != nil {
		t.Fatalf("Expected empty audio to be tolerated, got %v", err)
	}
}

func TestIncidentValidateRejects(t *testing.T) {
	badAudio := "https://example.org/audio.webm"

	cases := []struct {
		name   string
		mutate func(*IncidentPayload)
	}{
		{"wrong status", func(p *IncidentPayload) { p.Status = "verified" }},
		{"empty status", func(p *IncidentPayload) { p.Status = "" }},
		{"unknown type", func(p *IncidentPayload) { p.Type = "Meteor" }},
		{"photo not a data uri", func(p *IncidentPayload) { p.PhotoDataURI = "https://example.org/p.jpg" }},
		{"missing photo", func(p *IncidentPayload) { p.PhotoDataURI = "" }},
		{"audio not a data uri", func(p *IncidentPayload) { p.AudioDataURI = &badAudio }},
		{"latitude out of range", func(p *IncidentPayload) { p.Latitude = 91 }},
		{"longitude out of range", func(p *IncidentPayload) { p.Longitude = -181 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validIncident()
			tc.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Errorf("Expected validation error for %s", tc.name)
			}
		})
	}
}
