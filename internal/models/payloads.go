package models

// ResourceType categorizes what a volunteer pledges.
type ResourceType string

const (
	ResourceFood      ResourceType = "Food"
	ResourceShelter   ResourceType = "Shelter"
	ResourceTransport ResourceType = "Transport"
	ResourceSkills    ResourceType = "Skills"
)

// ResourceTypes lists all valid pledge resource types.
var ResourceTypes = []ResourceType{
	ResourceFood,
	ResourceShelter,
	ResourceTransport,
	ResourceSkills,
}

// IncidentType categorizes a reported climate threat.
type IncidentType string

const (
	IncidentFlood      IncidentType = "Flood"
	IncidentFire       IncidentType = "Fire"
	IncidentStorm      IncidentType = "Storm"
	IncidentEarthquake IncidentType = "Earthquake"
	IncidentLandslide  IncidentType = "Landslide"
	IncidentOther      IncidentType = "Other"
)

// IncidentTypes lists all valid incident types.
var IncidentTypes = []IncidentType{
	IncidentFlood,
	IncidentFire,
	IncidentStorm,
	IncidentEarthquake,
	IncidentLandslide,
	IncidentOther,
}

// IncidentStatusUnverified is the fixed status of every freshly created
// incident report; verification happens on the backend.
const IncidentStatusUnverified = "unverified"

// PledgePayload is the queued form of a volunteer aid pledge.
type PledgePayload struct {
	Name             string       `json:"name"`
	Contact          string       `json:"contact"`
	ContactNumber    string       `json:"contact_number"`
	ResourceType     ResourceType `json:"resource_type"`
	ResourceDetails  string       `json:"resource_details"`
	Quantity         int          `json:"quantity"`
	Latitude         *float64     `json:"latitude"`
	Longitude        *float64     `json:"longitude"`
	LocationAccuracy *float64     `json:"location_accuracy"`
	LocationLandmark *string      `json:"location_landmark"`
	PledgerID        *string      `json:"pledger_id,omitempty"`
}

// IncidentPayload is the queued form of an incident report. Photo and
// audio are carried as data URIs so the queue holds the only durable
// copy of the media while the device is offline.
type IncidentPayload struct {
	Status           string       `json:"status"`
	Type             IncidentType `json:"type"`
	Description      *string      `json:"description"`
	PhotoDataURI     string       `json:"photoDataUri"`
	AudioDataURI     *string      `json:"audioDataUri,omitempty"`
	Latitude         float64      `json:"latitude"`
	Longitude        float64      `json:"longitude"`
	NotifyDepartment *string      `json:"notify_department"`
	NotifyContact    *string      `json:"notify_contact"`
}

// IncidentRecord is the resolved insert payload for an incident after
// its media has been uploaded: data URIs replaced by public URLs.
type IncidentRecord struct {
	Status           string       `json:"status"`
	Type             IncidentType `json:"type"`
	Description      *string      `json:"description"`
	PhotoURL         string       `json:"photo_url"`
	AudioURL         *string      `json:"audio_url,omitempty"`
	Latitude         float64      `json:"latitude"`
	Longitude        float64      `json:"longitude"`
	NotifyDepartment *string      `json:"notify_department"`
	NotifyContact    *string      `json:"notify_contact"`
}
