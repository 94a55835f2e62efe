package pack

// Chunk is one program's saved settings with the header needed to detect a
// layout change
type Chunk struct {
	ProgramID   string `json:"program"`
	Version     uint8  `json:"version"`
	Fingerprint uint32 `json:"fingerprint"`
	Width       uint   `json:"width"`
	Data        uint64 `json:"data"`
}

// NewChunk wraps data packed with the schema
func NewChunk(programID string, s *Schema, data uint64) Chunk {
	return Chunk{
		ProgramID:   programID,
		Version:     s.Version,
		Fingerprint: s.Fingerprint(),
		Width:       s.Width(),
		Data:        data,
	}
}

// Matches reports whether the chunk was written with this schema
func (c Chunk) Matches(s *Schema) bool {
	return c.Version == s.Version &&
		c.Width == s.Width() &&
		c.Fingerprint == s.Fingerprint()
}

// IsZero reports whether the chunk is empty
func (c Chunk) IsZero() bool {
	return c == Chunk{}
}
