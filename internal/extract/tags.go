package extract

import "strings"

// DefaultTagKey collects tags that carry no variant suffix.
const DefaultTagKey = "default"

// ClassifyTags groups image tags by the text after their last hyphen:
// "3.11-alpine" files "3.11" under "alpine", "ubuntu-22.04-slim" files
// "ubuntu-22.04" under "slim". Tags without a hyphen are filed whole under
// DefaultTagKey. Input order is kept within each key.
func ClassifyTags(tags []string) map[string][]string {
	out := make(map[string][]string)
	for _, tag := range tags {
		i := strings.LastIndexByte(tag, '-')
		if i < 0 {
			out[DefaultTagKey] = append(out[DefaultTagKey], tag)
			continue
		}
		key := tag[i+1:]
		out[key] = append(out[key], tag[:i])
	}
	return out
}
