package operator

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"github.com/sema/keyirq/pkg/keypad"
	"gopkg.in/yaml.v3"
)

// Segment holds a set of keys for a number of frames. A zero frame count is
// only allowed on the last segment and means "forever".
type Segment struct {
	Hold   []string `yaml:"hold"`
	Frames uint64   `yaml:"frames"`
}

type scriptFile struct {
	Segments []Segment `yaml:"segments"`
}

type scriptSegment struct {
	mask keypad.KeyMask
	end  uint64
}

// Script replays a fixed key sequence regardless of what is on screen. The
// last segment is held forever.
//
// Example:
//
//	segments:
//	  - hold: []
//	    frames: 30
//	  - hold: [A]
//	    frames: 60
//	  - hold: [A, B]
type Script struct {
	segments []scriptSegment
}

// ParseScript decodes and validates a YAML key script
func ParseScript(data []byte) (*Script, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("script is empty")
	}

	var file scriptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "decode script")
	}
	if len(file.Segments) == 0 {
		return nil, errors.New("script has no segments")
	}

	s := &Script{}
	var end uint64
	for i, seg := range file.Segments {
		keys, err := keypad.ParseKeys(seg.Hold)
		if err != nil {
			return nil, errors.Wrapf(err, "segment %d", i)
		}
		last := i == len(file.Segments)-1
		if seg.Frames == 0 && !last {
			return nil, errors.Errorf("segment %d: frames must be positive", i)
		}

		end += seg.Frames
		s.segments = append(s.segments, scriptSegment{mask: keypad.Held(keys), end: end})
	}
	return s, nil
}

// LoadScript reads a YAML key script from disk
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read script")
	}

	s, err := ParseScript(data)
	if err != nil {
		return nil, errors.Wrapf(err, "script %s", path)
	}
	return s, nil
}

// Input returns the keys held during the given frame (counting from 1)
func (s *Script) Input(frame uint64, _ []string) keypad.KeyMask {
	for _, seg := range s.segments[:len(s.segments)-1] {
		if frame <= seg.end {
			return seg.mask
		}
	}
	return s.segments[len(s.segments)-1].mask
}
