package timeline

import "github.com/stwalsh4118/reel/internal/models"

// ClipInfo is the serialisable view of a clip
type ClipInfo struct {
	models.Placement
	Track models.TrackKind `json:"track"`
	Label string           `json:"label,omitempty"`
	Gain  *float64         `json:"gain,omitempty"` // Audio clips only
}

// Snapshot is the serialisable view of the registry
type Snapshot struct {
	Video           []ClipInfo `json:"video"`
	Audio           []ClipInfo `json:"audio"`
	ProjectDuration float64    `json:"project_duration"`
}

// Snapshot captures the current tracks
func (r *Registry) Snapshot() Snapshot {
	snap := Snapshot{
		Video:           make([]ClipInfo, 0, r.video.Len()),
		Audio:           make([]ClipInfo, 0, r.audio.Len()),
		ProjectDuration: r.duration,
	}

	for _, c := range r.video.clips {
		snap.Video = append(snap.Video, ClipInfo{
			Placement: c.placement,
			Track:     models.TrackVideo,
			Label:     c.label,
		})
	}

	for _, c := range r.audio.clips {
		gain := c.bus.Gain()
		snap.Audio = append(snap.Audio, ClipInfo{
			Placement: c.placement,
			Track:     models.TrackAudio,
			Label:     c.label,
			Gain:      &gain,
		})
	}

	return snap
}
