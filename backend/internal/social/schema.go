package social

import (
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "circles/backend/pkg/errors"
)

// Each entity kind has an explicit field schema validated once at the
// serialization boundary. Validation reports every violation found,
// not just the first. Scalar keys are lower-case; relationship keys
// keep the wire names the clients already use (People, Circles,
// Events, Circle).

type fieldKind int

const (
	stringField fieldKind = iota
	boolField
	datetimeField
	idListField
	attendanceField
)

type fieldSpec struct {
	key      string
	kind     fieldKind
	required bool
}

var personSchema = []fieldSpec{
	{key: "display_name", kind: stringField, required: true},
	{key: "email", kind: stringField, required: true},
	{key: "photo", kind: stringField},
	{key: "messaging_token", kind: stringField},
	{key: "People", kind: idListField},
	{key: "Circles", kind: idListField},
	{key: "Events", kind: attendanceField},
}

var circleSchema = []fieldSpec{
	{key: "display_name", kind: stringField, required: true},
	{key: "owner_id", kind: stringField, required: true},
	{key: "description", kind: stringField},
	{key: "members_can_add", kind: boolField},
	{key: "members_can_ping", kind: boolField},
	{key: "People", kind: idListField},
}

var eventSchema = []fieldSpec{
	{key: "display_name", kind: stringField, required: true},
	{key: "location", kind: stringField, required: true},
	{key: "start_datetime", kind: datetimeField, required: true},
	{key: "end_datetime", kind: datetimeField, required: true},
	{key: "Circle", kind: stringField, required: true},
	{key: "description", kind: stringField},
	{key: "People", kind: attendanceField},
}

func validatePayload(payload map[string]any, schema []fieldSpec) []string {
	var violations []string
	for _, f := range schema {
		val, present := payload[f.key]
		if !present || val == nil {
			if f.required {
				violations = append(violations, fmt.Sprintf("missing required key %q", f.key))
			}
			continue
		}
		switch f.kind {
		case stringField:
			if _, ok := val.(string); !ok {
				violations = append(violations, fmt.Sprintf("key %q must be a string", f.key))
			}
		case boolField:
			if _, ok := val.(bool); !ok {
				violations = append(violations, fmt.Sprintf("key %q must be a boolean", f.key))
			}
		case datetimeField:
			s, ok := val.(string)
			if !ok {
				violations = append(violations, fmt.Sprintf("key %q must be an RFC3339 datetime string", f.key))
				continue
			}
			if _, err := time.Parse(time.RFC3339, s); err != nil {
				violations = append(violations, fmt.Sprintf("key %q is not a valid RFC3339 datetime", f.key))
			}
		case idListField:
			if _, ok := toIDList(val); !ok {
				violations = append(violations, fmt.Sprintf("key %q must be a list of id strings", f.key))
			}
		case attendanceField:
			if _, ok := toAttendance(val); !ok {
				violations = append(violations, fmt.Sprintf("key %q must be a map of id to boolean", f.key))
			}
		}
	}
	return violations
}

// PersonFromJSON builds a transient Person from a request payload.
// The email is case-folded here so every later comparison sees the
// normalized form.
func PersonFromJSON(payload map[string]any) (*Person, error) {
	if violations := validatePayload(payload, personSchema); len(violations) > 0 {
		return nil, apperrors.NewValidation(violations...)
	}

	p := &Person{
		DisplayName:    getString(payload, "display_name"),
		Email:          strings.ToLower(getString(payload, "email")),
		Photo:          getString(payload, "photo"),
		MessagingToken: getString(payload, "messaging_token"),
		Knows:          getIDList(payload, "People"),
		Circles:        getIDList(payload, "Circles"),
	}
	for id, attending := range getAttendance(payload, "Events") {
		p.Invites = append(p.Invites, Invite{ID: id, Attending: attending})
	}
	sortInvites(p.Invites)
	return p, nil
}

// CircleFromJSON builds a transient Circle from a request payload.
func CircleFromJSON(payload map[string]any) (*Circle, error) {
	if violations := validatePayload(payload, circleSchema); len(violations) > 0 {
		return nil, apperrors.NewValidation(violations...)
	}

	return &Circle{
		DisplayName:    getString(payload, "display_name"),
		Description:    getString(payload, "description"),
		OwnerID:        getString(payload, "owner_id"),
		MembersCanAdd:  getBool(payload, "members_can_add"),
		MembersCanPing: getBool(payload, "members_can_ping"),
		Members:        getIDList(payload, "People"),
	}, nil
}

// EventFromJSON builds a transient Event from a request payload. The
// owner is set by the caller from the authenticated requester.
func EventFromJSON(payload map[string]any) (*Event, error) {
	if violations := validatePayload(payload, eventSchema); len(violations) > 0 {
		return nil, apperrors.NewValidation(violations...)
	}

	e := &Event{
		DisplayName: getString(payload, "display_name"),
		Description: getString(payload, "description"),
		Location:    getString(payload, "location"),
		Start:       getTime(payload, "start_datetime"),
		End:         getTime(payload, "end_datetime"),
		CircleID:    getString(payload, "Circle"),
	}
	for id, attending := range getAttendance(payload, "People") {
		e.Invitees = append(e.Invitees, Invite{ID: id, Attending: attending})
	}
	sortInvites(e.Invitees)
	return e, nil
}

func getString(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func getBool(payload map[string]any, key string) bool {
	if v, ok := payload[key].(bool); ok {
		return v
	}
	return false
}

func getTime(payload map[string]any, key string) time.Time {
	if v, ok := payload[key].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func getIDList(payload map[string]any, key string) []string {
	ids, _ := toIDList(payload[key])
	return ids
}

func getAttendance(payload map[string]any, key string) map[string]bool {
	m, _ := toAttendance(payload[key])
	return m
}

func toIDList(val any) ([]string, bool) {
	if val == nil {
		return nil, true
	}
	switch list := val.(type) {
	case []string:
		return list, true
	case []any:
		ids := make([]string, 0, len(list))
		for _, v := range list {
			s, ok := v.(string)
			if !ok {
				return nil, false
			}
			ids = append(ids, s)
		}
		return ids, true
	}
	return nil, false
}

func toAttendance(val any) (map[string]bool, bool) {
	if val == nil {
		return nil, true
	}
	switch m := val.(type) {
	case map[string]bool:
		return m, true
	case map[string]any:
		out := make(map[string]bool, len(m))
		for k, v := range m {
			b, ok := v.(bool)
			if !ok {
				return nil, false
			}
			out[k] = b
		}
		return out, true
	}
	return nil, false
}

func sortInvites(invites []Invite) {
	sort.Slice(invites, func(i, j int) bool { return invites[i].ID < invites[j].ID })
}
