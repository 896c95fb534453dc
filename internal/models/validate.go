package models

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9][0-9\s\-().]{5,19}$`)
)

// Validate checks a pledge payload before it is accepted into the queue.
func (p *PledgePayload) Validate() error {
	if len(strings.TrimSpace(p.Name)) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	if !emailRe.MatchString(p.Contact) {
		return fmt.Errorf("contact must be a valid email address")
	}
	if !phoneRe.MatchString(p.ContactNumber) {
		return fmt.Errorf("contact_number must be a valid phone number")
	}
	if !validResourceType(p.ResourceType) {
		return fmt.Errorf("resource_type %q is not one of %v", p.ResourceType, ResourceTypes)
	}
	if len(strings.TrimSpace(p.ResourceDetails)) < 5 {
		return fmt.Errorf("resource_details must be at least 5 characters")
	}
	if p.Quantity < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}
	if (p.Latitude == nil) != (p.Longitude == nil) {
		return fmt.Errorf("latitude and longitude must be provided together")
	}
	if p.Latitude != nil {
		if err := validCoordinates(*p.Latitude, *p.Longitude); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks an incident payload before it is accepted into the queue.
func (p *IncidentPayload) Validate() error {
	if p.Status != IncidentStatusUnverified {
		return fmt.Errorf("new incidents must have status %q", IncidentStatusUnverified)
	}
	if !validIncidentType(p.Type) {
		return fmt.Errorf("type %q is not one of %v", p.Type, IncidentTypes)
	}
	if !strings.HasPrefix(p.PhotoDataURI, "data:") {
		return fmt.Errorf("photoDataUri must be a data URI")
	}
	if p.AudioDataURI != nil && *p.AudioDataURI != "" && !strings.HasPrefix(*p.AudioDataURI, "data:") {
		return fmt.Errorf("audioDataUri must be a data URI")
	}
	return validCoordinates(p.Latitude, p.Longitude)
}

func validCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v out of range", lon)
	}
	return nil
}

func validResourceType(t ResourceType) bool {
	for _, rt := range ResourceTypes {
		if t == rt {
			return true
		}
	}
	return false
}

func validIncidentType(t IncidentType) bool {
	for _, it := range IncidentTypes {
		if t == it {
			return true
		}
	}
	return false
}
