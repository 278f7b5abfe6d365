package servant

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// delimiterPattern anchors the port inside a tag value: _p<port>p_
var delimiterPattern = regexp.MustCompile(`_p(\d+)p_`)

// TagPattern matches a complete worker tag inside one environment entry.
// The greedy name part makes the rightmost delimiter the boundary.
var TagPattern = regexp.MustCompile(`^(` + TagMarker + `=.*_p\d+p_)$`)

// TagValue returns the environment value identifying a worker: <name>_p<port>p_
func TagValue(name string, port int) string {
	return fmt.Sprintf("%s_p%dp_", name, port)
}

// EncodeTag returns the full tag for a worker: THEREISASERVANT=<name>_p<port>p_
func EncodeTag(name string, port int) string {
	return TagMarker + "=" + TagValue(name, port)
}

// DecodeTag splits a tag into its service name and port.
//
// The value portion is whatever follows the marker assignment; a bare value
// such as "pkg.mod.Class_p2222p_" is accepted as well. The last occurrence of
// _p<digits>p_ is the boundary, so names may contain dots or '=' but not the
// delimiter pattern itself. A tag without the delimiter is an ErrMalformedTag.
func DecodeTag(tag string) (string, int, error) {
	value := tagValuePortion(tag)

	matches := delimiterPattern.FindAllStringSubmatchIndex(value, -1)
	if len(matches) == 0 {
		return "", 0, &OpError{Op: OpDecode, Name: tag, Err: ErrMalformedTag}
	}
	last := matches[len(matches)-1]

	port, err := strconv.Atoi(value[last[2]:last[3]])
	if err != nil {
		return "", 0, &OpError{Op: OpDecode, Name: tag, Err: fmt.Errorf("%w: %v", ErrMalformedTag, err)}
	}

	name := value[:last[0]] + value[last[1]:]
	return name, port, nil
}

func tagValuePortion(tag string) string {
	if v, ok := strings.CutPrefix(tag, TagMarker+"="); ok {
		return v
	}
	if _, v, ok := strings.Cut(tag, "="); ok {
		return v
	}
	return tag
}
