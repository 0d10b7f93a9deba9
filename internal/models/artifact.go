package models

// Artifact is an uploaded proof photo or mission image held in memory
type Artifact struct {
	FileName    string
	ContentType string
	Data        []byte
}

// IsEmpty reports whether no artifact content was supplied
func (a *Artifact) IsEmpty() bool {
	return a == nil || len(a.Data) == 0
}

// Size returns the artifact length in bytes
func (a *Artifact) Size() int64 {
	if a == nil {
		return 0
	}
	return int64(len(a.Data))
}

// ArtifactMetadata describes where and how an artifact is stored
type ArtifactMetadata struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}
