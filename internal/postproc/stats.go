package postproc

// Stats counts frames through each processing path since the stage was
// created.
type Stats struct {
	FramesIn          uint64 `json:"frames_in"`
	FramesOut         uint64 `json:"frames_out"`
	VPPFrames         uint64 `json:"vpp_frames"`
	FieldSplitFrames  uint64 `json:"field_split_frames"`
	PassthroughFrames uint64 `json:"passthrough_frames"`
	Fallbacks         uint64 `json:"fallbacks"`
}

// Stats returns a snapshot of the processing counters.
func (s *Stage) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
