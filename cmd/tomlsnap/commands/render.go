package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openfroyo/tomlsnap/pkg/document"
	"github.com/openfroyo/tomlsnap/pkg/snapshot"
)

// renderSnapshot serializes a snapshot node in the requested format. Both
// formats preserve document key order; Go maps would lose it, so the YAML
// path builds yaml.Node mappings directly and the JSON path writes objects
// by hand.
func renderSnapshot(root snapshot.Node, format string) ([]byte, error) {
	switch format {
	case "yaml":
		return yaml.Marshal(yamlNode(root))
	case "json":
		var buf bytes.Buffer
		writeJSON(&buf, root, 0)
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (must be 'yaml' or 'json')", format)
	}
}

func yamlNode(n snapshot.Node) *yaml.Node {
	switch n.Kind() {
	case snapshot.KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(n.Str())}
	case snapshot.KindInteger:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(n.Int64(), 10)}
	case snapshot.KindFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(n.Float64(), 'g', -1, 64)}
	case snapshot.KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(n.Bool())}
	case snapshot.KindDate:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: formatDate(n.Date())}
	case snapshot.KindTime:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: formatTime(n.Time())}
	case snapshot.KindDateTime:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: formatDateTime(n.DateTime())}
	case snapshot.KindArray:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i := 0; i < n.Len(); i++ {
			seq.Content = append(seq.Content, yamlNode(n.Elem(i)))
		}
		return seq
	case snapshot.KindTable:
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for i := 0; i < n.Len(); i++ {
			key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(n.Key(i))}
			m.Content = append(m.Content, key, yamlNode(n.Value(i)))
		}
		return m
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

func writeJSON(buf *bytes.Buffer, n snapshot.Node, depth int) {
	switch n.Kind() {
	case snapshot.KindString:
		writeJSONString(buf, string(n.Str()))
	case snapshot.KindInteger:
		buf.WriteString(strconv.FormatInt(n.Int64(), 10))
	case snapshot.KindFloat:
		// JSON has no inf/nan literals; render them as strings.
		f := n.Float64()
		s := strconv.FormatFloat(f, 'g', -1, 64)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			writeJSONString(buf, s)
		} else {
			buf.WriteString(s)
		}
	case snapshot.KindBool:
		buf.WriteString(strconv.FormatBool(n.Bool()))
	case snapshot.KindDate:
		writeJSONString(buf, formatDate(n.Date()))
	case snapshot.KindTime:
		writeJSONString(buf, formatTime(n.Time()))
	case snapshot.KindDateTime:
		writeJSONString(buf, formatDateTime(n.DateTime()))
	case snapshot.KindArray:
		if n.Len() == 0 {
			buf.WriteString("[]")
			return
		}
		buf.WriteByte('[')
		for i := 0; i < n.Len(); i++ {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeIndent(buf, depth+1)
			writeJSON(buf, n.Elem(i), depth+1)
		}
		writeIndent(buf, depth)
		buf.WriteByte(']')
	case snapshot.KindTable:
		if n.Len() == 0 {
			buf.WriteString("{}")
			return
		}
		buf.WriteByte('{')
		for i := 0; i < n.Len(); i++ {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeIndent(buf, depth+1)
			writeJSONString(buf, string(n.Key(i)))
			buf.WriteString(": ")
			writeJSON(buf, n.Value(i), depth+1)
		}
		writeIndent(buf, depth)
		buf.WriteByte('}')
	default:
		buf.WriteString("null")
	}
}

func writeJSONString(buf *bytes.Buffer, s string) {
	b, err := json.Marshal(s)
	if err != nil {
		// Marshalling a string never fails; keep the output well-formed
		// anyway.
		buf.WriteString(`""`)
		return
	}
	buf.Write(b)
}

func writeIndent(buf *bytes.Buffer, depth int) {
	buf.WriteByte('\n')
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
}

func formatDate(d document.Date) string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func formatTime(t document.Time) string {
	s := fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	if t.Nanosecond != 0 {
		frac := strings.TrimRight(fmt.Sprintf("%09d", t.Nanosecond), "0")
		s += "." + frac
	}
	return s
}

func formatDateTime(dt document.DateTime) string {
	s := formatDate(dt.Date) + "T" + formatTime(dt.Time)
	if !dt.HasOffset {
		return s
	}
	if dt.OffsetMinutes == 0 {
		return s + "Z"
	}
	off := dt.OffsetMinutes
	sign := "+"
	if off < 0 {
		sign = "-"
		off = -off
	}
	return s + fmt.Sprintf("%s%02d:%02d", sign, off/60, off%60)
}
