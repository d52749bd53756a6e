package models

import (
	"encoding/json"
	"time"
)

// AdventureStatus is the lifecycle state of a generated adventure.
type AdventureStatus string

const (
	StatusPlanned    AdventureStatus = "PLANNED"
	StatusInProgress AdventureStatus = "IN_PROGRESS"
	StatusCompleted  AdventureStatus = "COMPLETED"
	StatusFailed     AdventureStatus = "FAILED"
)

// AllAdventureStatuses lists every status in state machine order.
var AllAdventureStatuses = []AdventureStatus{StatusPlanned, StatusInProgress, StatusCompleted, StatusFailed}

// Valid reports whether s is one of the known statuses.
func (s AdventureStatus) Valid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible from s.
func (s AdventureStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed:
		return true
	case StatusPlanned, StatusInProgress:
		return false
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a forward step.
//
//	PLANNED     -> IN_PROGRESS | COMPLETED | FAILED
//	IN_PROGRESS -> COMPLETED | FAILED
func (s AdventureStatus) CanTransitionTo(next AdventureStatus) bool {
	switch s {
	case StatusPlanned:
		return next == StatusInProgress || next == StatusCompleted || next == StatusFailed
	case StatusInProgress:
		return next == StatusCompleted || next == StatusFailed
	case StatusCompleted, StatusFailed:
		return false
	}
	return false
}

// WaypointType is the role a waypoint plays in the walk.
type WaypointType string

const (
	WaypointStart        WaypointType = "START"
	WaypointIntermediate WaypointType = "INTERMEDIATE"
	WaypointDestination  WaypointType = "DESTINATION"
)

// Valid reports whether t is one of the known waypoint types.
func (t WaypointType) Valid() bool {
	switch t {
	case WaypointStart, WaypointIntermediate, WaypointDestination:
		return true
	}
	return false
}

// Waypoint sources.
const (
	SourceGeolocation   = "geolocation"
	SourceUserSelection = "user-selection"
	SourceRandomPlace   = "google_places_random"
)

// TransportationWalking is the only travel mode adventures are planned for.
const TransportationWalking = "walking"

// Adventure represents one generated outing.
type Adventure struct {
	ID                    string          `json:"id"`
	UserID                string          `json:"userId"`
	Status                AdventureStatus `json:"status"`
	FailureReason         *string         `json:"failureReason,omitempty"`
	PlannedDistanceMeters int             `json:"plannedDistanceMeters"`
	WaypointCount         int             `json:"waypointCount"`
	CreatedAt             time.Time       `json:"createdAt"`

	// Populated when the adventure is hydrated.
	Waypoints            []Waypoint `json:"waypoints,omitempty"`
	Routes               []Route    `json:"routes,omitempty"`
	TotalDistanceMeters  int        `json:"totalDistanceMeters"`
	TotalDurationMinutes int        `json:"totalDurationMinutes"`
}

// StartWaypoint returns the START waypoint, or nil when the list has none.
func (a *Adventure) StartWaypoint() *Waypoint {
	return FindStart(a.Waypoints)
}

// FindStart returns the first START waypoint in wps.
func FindStart(wps []Waypoint) *Waypoint {
	for i := range wps {
		if wps[i].WaypointType == WaypointStart {
			return &wps[i]
		}
	}
	return nil
}

// Waypoint is one stop on the route.
type Waypoint struct {
	ID           string       `json:"id"`
	AdventureID  string       `json:"adventureId"`
	Sequence     int          `json:"sequence"`
	WaypointType WaypointType `json:"waypointType"`
	POICategory  *string      `json:"poiCategory,omitempty"`
	Latitude     float64      `json:"latitude"`
	Longitude    float64      `json:"longitude"`
	LocationName *string      `json:"locationName,omitempty"`
	POISourceID  *string      `json:"poiSourceId,omitempty"`
	POISource    string       `json:"poiSource,omitempty"`
	Address      *string      `json:"address,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// Category returns the POI category or "" when none was given.
func (w *Waypoint) Category() string {
	if w.POICategory == nil {
		return ""
	}
	return *w.POICategory
}

// Label is a short human readable name used in log lines.
func (w *Waypoint) Label() string {
	if w.LocationName != nil && *w.LocationName != "" {
		return *w.LocationName
	}
	return w.ID
}

// Route is the computed path between two consecutive waypoints.
type Route struct {
	ID                 string          `json:"id"`
	AdventureID        string          `json:"adventureId"`
	FromWaypointID     string          `json:"fromWaypointId"`
	ToWaypointID       string          `json:"toWaypointId"`
	RouteJSON          json.RawMessage `json:"routeJson,omitempty"`
	Polyline           string          `json:"polyline,omitempty"`
	DistanceMeters     int             `json:"distanceMeters"`
	DurationMinutes    int             `json:"durationMinutes"`
	TransportationMode string          `json:"transportationMode"`
	CreatedAt          time.Time       `json:"createdAt"`

	FromWaypoint *Waypoint `json:"fromWaypoint,omitempty"`
	ToWaypoint   *Waypoint `json:"toWaypoint,omitempty"`
}

// CreateWaypointRequest is one waypoint of a creation request.
type CreateWaypointRequest struct {
	Sequence     int          `json:"sequence" validate:"min=0"`
	WaypointType WaypointType `json:"waypointType" validate:"required,oneof=START INTERMEDIATE DESTINATION"`
	POICategory  *string      `json:"poiCategory,omitempty" validate:"omitempty,max=64"`
	Latitude     float64      `json:"latitude" validate:"min=-90,max=90"`
	Longitude    float64      `json:"longitude" validate:"min=-180,max=180"`
	LocationName *string      `json:"locationName,omitempty" validate:"omitempty,max=255"`
	POISourceID  *string      `json:"poiSourceId,omitempty" validate:"omitempty,max=255"`
	POISource    string       `json:"poiSource,omitempty" validate:"omitempty,max=64"`
	Address      *string      `json:"address,omitempty" validate:"omitempty,max=512"`
}

// CreateAdventureRequest is the input of the generation pipeline.
type CreateAdventureRequest struct {
	UserID                string                  `json:"userId" validate:"required,uuid"`
	PlannedDistanceMeters int                     `json:"plannedDistanceMeters" validate:"min=0"`
	WaypointCount         int                     `json:"waypointCount" validate:"min=0"`
	Waypoints             []CreateWaypointRequest `json:"waypoints" validate:"required,min=1,dive"`
}

// UpdateStatusRequest is the body of a direct status change.
type UpdateStatusRequest struct {
	Status        AdventureStatus `json:"status" validate:"required,oneof=PLANNED IN_PROGRESS COMPLETED FAILED"`
	FailureReason *string         `json:"failureReason,omitempty" validate:"omitempty,max=1024"`
}

// AdventureStats aggregates adventures per status.
type AdventureStats struct {
	StatusCounts         map[AdventureStatus]int `json:"statusCounts"`
	TotalPlannedDistance int                     `json:"totalPlannedDistance"`
}

// DeleteAdventureResponse is returned after a successful removal.
type DeleteAdventureResponse struct {
	Message            string `json:"message"`
	DeletedAdventureID string `json:"deletedAdventureId"`
}
