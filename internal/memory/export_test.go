package memory

// SetLineWidthInPlace changes the line width without migrating the object,
// leaving it filed under a stale key.
func (o *RenderObject) SetLineWidthInPlace(w float32) {
	o.attrs.LineWidth = w
}
