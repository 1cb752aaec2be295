package song

import (
	"encoding/json"
	"fmt"
)

// SchemaVersion is written into every serialized model.
const SchemaVersion = 1

type lineEnvelope struct {
	Kind LineKind `json:"kind"`
}

func (l *TextLine) MarshalJSON() ([]byte, error) {
	type plain TextLine
	chords := l.Chords
	if chords == nil {
		chords = []ChordPlacement{}
	}
	return json.Marshal(struct {
		Kind LineKind `json:"kind"`
		plain
	}{KindText, plain{Text: l.Text, Chords: chords}})
}

func (l *EmptyLine) MarshalJSON() ([]byte, error) {
	type plain EmptyLine
	return json.Marshal(struct {
		Kind LineKind `json:"kind"`
		plain
	}{KindEmpty, plain(*l)})
}

func (l *AnnotationLine) MarshalJSON() ([]byte, error) {
	type plain AnnotationLine
	return json.Marshal(struct {
		Kind LineKind `json:"kind"`
		plain
	}{KindAnnotation, plain(*l)})
}

// UnmarshalLine decodes one line envelope by its kind tag.
func UnmarshalLine(data []byte) (Line, error) {
	var env lineEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case KindText:
		var l TextLine
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, err
		}
		if l.Chords == nil {
			l.Chords = []ChordPlacement{}
		}
		return &l, nil
	case KindEmpty:
		var l EmptyLine
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, err
		}
		return &l, nil
	case KindAnnotation:
		var l AnnotationLine
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, err
		}
		return &l, nil
	default:
		return nil, fmt.Errorf("unknown line kind %q", env.Kind)
	}
}

func (s *Section) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name  string            `json:"name"`
		Lines []json.RawMessage `json:"lines"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Name = raw.Name
	s.Lines = make([]Line, 0, len(raw.Lines))
	for i, msg := range raw.Lines {
		l, err := UnmarshalLine(msg)
		if err != nil {
			return fmt.Errorf("section %q line %d: %w", raw.Name, i, err)
		}
		s.Lines = append(s.Lines, l)
	}
	return nil
}

type modelAlias Model

type modelDocument struct {
	SchemaVersion int `json:"schema_version"`
	*modelAlias
}

// MarshalJSON writes the model with its schema version.
func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(modelDocument{SchemaVersion: SchemaVersion, modelAlias: (*modelAlias)(m)})
}

// UnmarshalJSON accepts documents up to SchemaVersion. Documents without a
// version predate versioning and are read as version 1.
func (m *Model) UnmarshalJSON(data []byte) error {
	doc := modelDocument{modelAlias: (*modelAlias)(m)}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.SchemaVersion > SchemaVersion {
		return fmt.Errorf("unsupported model schema version %d (max %d)", doc.SchemaVersion, SchemaVersion)
	}
	return nil
}
