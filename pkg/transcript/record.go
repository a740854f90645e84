package transcript

import (
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// Record is one persisted transcript line.
type Record struct {
	ID              string    `json:"id" msgpack:"id" jsonschema:"unique record identifier"`
	SessionID       string    `json:"session_id" msgpack:"session_id" jsonschema:"session the utterance belongs to"`
	ParticipantID   string    `json:"participant_id" msgpack:"participant_id" jsonschema:"speaker identifier"`
	ParticipantName string    `json:"participant_name,omitempty" msgpack:"participant_name,omitempty" jsonschema:"speaker display name"`
	StartTime       time.Time `json:"start_time" msgpack:"start_time" jsonschema:"wall-clock start of the utterance"`
	EndTime         time.Time `json:"end_time" msgpack:"end_time" jsonschema:"wall-clock end of the utterance"`
	Text            string    `json:"text" msgpack:"text" jsonschema:"recognized text"`
	Language        string    `json:"language,omitempty" msgpack:"language,omitempty" jsonschema:"language code reported or requested"`
	Provider        string    `json:"provider" msgpack:"provider" jsonschema:"speech-to-text provider name"`
	ClipPath        string    `json:"clip_path,omitempty" msgpack:"clip_path,omitempty" jsonschema:"location of the archived audio clip"`
	CreatedAt       time.Time `json:"created_at" msgpack:"created_at" jsonschema:"time the record was written"`
}

// Duration returns EndTime - StartTime.
func (r *Record) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

func (r *Record) validate() error {
	switch {
	case r.SessionID == "":
		return errors.New("transcript: session id is required")
	case r.ParticipantID == "":
		return errors.New("transcript: participant id is required")
	case r.StartTime.IsZero() || r.EndTime.IsZero():
		return errors.New("transcript: start and end time are required")
	case r.EndTime.Before(r.StartTime):
		return errors.New("transcript: end time before start time")
	}
	return nil
}

// Schema returns the JSON Schema of Record, indented.
func Schema() ([]byte, error) {
	s, err := jsonschema.For[Record](&jsonschema.ForOptions{
		TypeSchemas: map[reflect.Type]*jsonschema.Schema{
			reflect.TypeFor[time.Time](): {Type: "string", Format: "date-time"},
		},
	})
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(s, "", "  ")
}
