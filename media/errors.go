package media

import "fmt"

// InspectionError reports a failed or unparseable probe of a media file.
type InspectionError struct {
	Path   string
	Output string
	Err    error
}

func (e *InspectionError) Error() string {
	return fmt.Sprintf("media inspection failed for %s: %v", e.Path, e.Err)
}

func (e *InspectionError) Unwrap() error { return e.Err }

// MuxError reports a failed mux invocation, carrying the tool's diagnostics.
type MuxError struct {
	Output string
	Err    error
}

func (e *MuxError) Error() string {
	return fmt.Sprintf("mux failed: %v", e.Err)
}

func (e *MuxError) Unwrap() error { return e.Err }
