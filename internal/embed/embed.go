// Package embed builds rich message embeds. An Embed is passed to
// interactions.Message as-is and flattened through Serialize when the reply
// is sent.
package embed

import "strings"

// Platform limits; longer values are truncated.
const (
	MaxTitle       = 256
	MaxDescription = 4096
	MaxFields      = 25
	MaxFieldName   = 256
	MaxFieldValue  = 1024
	MaxFooter      = 2048
)

// Field is one name/value pair.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Footer is the small text under the embed.
type Footer struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

// Media is an image or thumbnail reference.
type Media struct {
	URL string `json:"url"`
}

// Data is the serialised form of an embed.
type Data struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	URL         string  `json:"url,omitempty"`
	Color       int     `json:"color,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	Thumbnail   *Media  `json:"thumbnail,omitempty"`
	Image       *Media  `json:"image,omitempty"`
	Footer      *Footer `json:"footer,omitempty"`
}

// Embed is a chainable embed builder.
type Embed struct {
	data Data
}

// New returns an empty embed.
func New() *Embed { return &Embed{} }

func (e *Embed) SetTitle(title string) *Embed {
	e.data.Title = truncate(title, MaxTitle)
	return e
}

func (e *Embed) SetDescription(desc string) *Embed {
	e.data.Description = truncate(desc, MaxDescription)
	return e
}

func (e *Embed) SetURL(url string) *Embed {
	e.data.URL = url
	return e
}

func (e *Embed) SetColor(color int) *Embed {
	e.data.Color = color & 0xFFFFFF
	return e
}

// AddFields appends fields, dropping any beyond MaxFields.
func (e *Embed) AddFields(fields ...Field) *Embed {
	for _, f := range fields {
		if len(e.data.Fields) >= MaxFields {
			break
		}
		f.Name = truncate(f.Name, MaxFieldName)
		f.Value = truncate(f.Value, MaxFieldValue)
		e.data.Fields = append(e.data.Fields, f)
	}
	return e
}

// SetThumbnail sets the thumbnail. An empty url clears it.
func (e *Embed) SetThumbnail(url string) *Embed {
	e.data.Thumbnail = media(url)
	return e
}

// SetImage sets the main image. An empty url clears it.
func (e *Embed) SetImage(url string) *Embed {
	e.data.Image = media(url)
	return e
}

func (e *Embed) SetFooter(text, iconURL string) *Embed {
	if text == "" {
		e.data.Footer = nil
		return e
	}
	e.data.Footer = &Footer{Text: truncate(text, MaxFooter), IconURL: iconURL}
	return e
}

// Data returns a copy of the embed's current contents.
func (e *Embed) Data() Data {
	out := e.data
	out.Fields = append([]Field(nil), e.data.Fields...)
	return out
}

// Serialize returns the plain form sent to the platform.
func (e *Embed) Serialize() any { return e.Data() }

func media(url string) *Media {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	return &Media{URL: url}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
