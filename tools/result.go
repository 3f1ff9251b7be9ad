package tools

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// PluginResult is the uniform envelope returned by every tool.
// Only Message is required, absent fields are not applicable to the tool.
type PluginResult struct {
	// Message is the human-readable outcome sent back to the model
	Message string `json:"message" yaml:"message"`
	// Title of the produced artifact
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	// ImageData is a base64 image payload
	ImageData string `json:"imageData,omitempty" yaml:"imageData,omitempty"`
	// URL of the browsed resource
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
	// JSONData is structured data for the client
	JSONData any `json:"jsonData,omitempty" yaml:"jsonData,omitempty"`
	// Instructions for the model on how to continue the conversation
	Instructions string `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	// HTMLData is a composed HTML document
	HTMLData string `json:"htmlData,omitempty" yaml:"htmlData,omitempty"`
	// Location to show on the map
	Location *Location `json:"location,omitempty" yaml:"location,omitempty"`
}

// LatLng is a coordinate pair
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Location is either a place name or a coordinate pair.
// It is encoded as a JSON string or as a {"lat","lng"} object.
type Location struct {
	Name        string
	Coordinates *LatLng
}

// ParseLocation returns a coordinate location for `lat,lng` input,
// and a named location otherwise.
func ParseLocation(s string) *Location {
	s = strings.TrimSpace(s)
	latStr, lngStr, ok := strings.Cut(s, ",")
	if ok {
		lat, err1 := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
		lng, err2 := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
		if err1 == nil && err2 == nil && lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180 {
			return &Location{Coordinates: &LatLng{Lat: lat, Lng: lng}}
		}
	}
	return &Location{Name: s}
}

func (l Location) String() string {
	if l.Coordinates != nil {
		return strconv.FormatFloat(l.Coordinates.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(l.Coordinates.Lng, 'f', -1, 64)
	}
	return l.Name
}

// MarshalJSON implements json.Marshaler
func (l Location) MarshalJSON() ([]byte, error) {
	if l.Coordinates != nil {
		return json.Marshal(l.Coordinates)
	}
	return json.Marshal(l.Name)
}

// UnmarshalJSON implements json.Unmarshaler
func (l *Location) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var ll LatLng
		if err := json.Unmarshal(data, &ll); err != nil {
			return errors.Wrap(err, "invalid location coordinates")
		}
		*l = Location{Coordinates: &ll}
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return errors.Wrap(err, "invalid location")
	}
	*l = Location{Name: name}
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (l Location) MarshalYAML() (any, error) {
	if l.Coordinates != nil {
		return l.Coordinates, nil
	}
	return l.Name, nil
}

// FailureResult returns a result for a failed tool call.
func FailureResult(message, instructions string) *PluginResult {
	return &PluginResult{
		Message:      message,
		Instructions: instructions,
	}
}
