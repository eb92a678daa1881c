package chunk

import (
	"strconv"
	"strings"
)

// Tags returns the tags of the target, resolving numbered tags like <2>
// against parentTags; numbers out of range are kept literally.
func (c *Chunk) Tags(parentTags []string) []string {
	var tags []string
	t := c.Target
	for i := 0; i < len(t); i++ {
		switch t[i] {
		case '\\':
			i++
		case '<':
			j := strings.IndexByte(t[i+1:], '>')
			if j < 0 {
				continue
			}
			j += i + 1
			if n, ok := tagNumber(t[i+1 : j]); ok && n >= 1 && n <= len(parentTags) {
				tags = append(tags, parentTags[n-1])
			} else {
				tags = append(tags, t[i:j+1])
			}
		}
	}
	return tags
}

// UpdateTags rewrites numbered tags in the target with the corresponding
// parent tag; numbered tags out of range are dropped. Blanks are untouched.
func (c *Chunk) UpdateTags(parentTags []string) {
	if c.Blank {
		return
	}
	t := c.Target
	if strings.IndexByte(t, '<') < 0 {
		return
	}
	var sb strings.Builder
	sb.Grow(len(t) + 2*len(parentTags))
	last := 0
	for i := 0; i < len(t); i++ {
		switch t[i] {
		case '\\':
			i++
		case '<':
			j := strings.IndexByte(t[i+1:], '>')
			if j < 0 {
				continue
			}
			j += i + 1
			sb.WriteString(t[last:i])
			if n, ok := tagNumber(t[i+1 : j]); ok {
				if n >= 1 && n <= len(parentTags) {
					sb.WriteString(parentTags[n-1])
				}
			} else {
				sb.WriteString(t[i : j+1])
			}
			last = j + 1
			i = j
		}
	}
	if last < len(t) {
		sb.WriteString(t[last:])
	}
	c.Target = sb.String()
}

func tagNumber(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
