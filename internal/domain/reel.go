package domain

// ReelScript is one planned short video unit produced by the script
// generation call.
type ReelScript struct {
	Title     string   `json:"reel_title"`
	Narration string   `json:"spoken_narration"`
	Captions  []string `json:"on_screen_captions"`
}

// ImagePrompt is one entry of a reel's structured visual plan.
type ImagePrompt struct {
	ImageID     int    `json:"image_id"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
}

// ReelResult carries a reel's artifacts between pipeline stages. Storage keys
// are relative to the job's output namespace and are a derived projection for
// persistence and download; the struct itself is the data channel.
type ReelResult struct {
	Index     int
	Script    ReelScript
	AudioKey  string
	ImageKeys []string
	VideoKey  string
	Skipped   bool
}

// PipelineResult is the engine's success value for one job.
type PipelineResult struct {
	Reels []ReelResult
}

// Videos returns the storage keys of the assembled reel videos, in order.
func (r *PipelineResult) Videos() []string {
	var keys []string
	for _, reel := range r.Reels {
		if reel.VideoKey != "" {
			keys = append(keys, reel.VideoKey)
		}
	}
	return keys
}
