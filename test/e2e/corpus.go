// Package e2e runs generated word-processor exports through the whole pipeline
// and checks structural properties of every resulting archive.
package e2e

import (
	"fmt"
	"strings"
)

// Element is one body element of a generated export.
type Element struct {
	Tag   string // h1, h2, h3 or p
	Text  string // source text, may contain ruby notation and references
	Blank bool   // rendered as an export-style empty paragraph
}

// Document is a generated export together with what the pipeline should find in it.
type Document struct {
	Name     string
	Title    string
	Elements []Element
}

// Headings returns the number of non-empty headings.
func (d *Document) Headings() int {
	n := 0
	for _, e := range d.Elements {
		if e.Tag != "p" && strings.TrimSpace(e.Text) != "" {
			n++
		}
	}
	return n
}

// Blanks returns the number of blank paragraphs.
func (d *Document) Blanks() int {
	n := 0
	for _, e := range d.Elements {
		if e.Blank {
			n++
		}
	}
	return n
}

// HTML renders the document the way the word processor exports it: class-styled
// spans, a c3 class on blank paragraphs and a suffixed <title>.
func (d *Document) HTML() string {
	var sb strings.Builder
	sb.WriteString(`<html><head><meta content="text/html; charset=UTF-8" http-equiv="content-type">`)
	sb.WriteString(`<style type="text/css">.c3{height:11pt}.c1{font-size:11pt}</style>`)
	fmt.Fprintf(&sb, "<title>%s - Google ドキュメント</title></head>\n", d.Title)
	sb.WriteString(`<body class="c4 doc-content">` + "\n")
	for _, e := range d.Elements {
		switch {
		case e.Blank:
			sb.WriteString(`<p class="c0 c3"><span class="c1"></span></p>` + "\n")
		default:
			fmt.Fprintf(&sb, `<%s class="c2"><span class="c1">%s</span></%s>`+"\n", e.Tag, e.Text, e.Tag)
		}
	}
	sb.WriteString("<script>window.exportDone=true</script></body></html>")
	return sb.String()
}

var (
	sentences = []string{
		"｜月《つき》が2024年に昇った。",
		"「静かな夜だ」と彼は言った。",
		"ABCと123の間にXYZがある。",
		"&lt;注意&gt;と&amp;の扱い。",
		"（括弧で始まる段落）",
		"｜東京《とうきょう》から｜大阪《おおさか》まで500km。",
		"&#12354;&#x3044;う。",
		"何も変わらない普通の文。",
		"１２３と全角の数字。",
		"!?と?!が続く。",
	}
	headings = []string{
		"第一章",
		"第｜二《に》章　夜明け",
		"A&amp;B",
		"2025年の記録",
		"終章",
	}
)

// BuildCorpus returns n documents mixing headings, annotated text, references
// and blank paragraphs in varying proportions.
func BuildCorpus(n int) []*Document {
	docs := make([]*Document, n)
	for i := range docs {
		d := &Document{
			Name:  fmt.Sprintf("doc-%03d", i),
			Title: fmt.Sprintf("物語 %d", i),
		}
		paragraphs := 1 + i%7
		for j := 0; j < paragraphs; j++ {
			if (i+j)%4 == 0 {
				level := 1 + (i+j)%3
				d.Elements = append(d.Elements, Element{
					Tag:  fmt.Sprintf("h%d", level),
					Text: headings[(i+j)%len(headings)],
				})
			}
			d.Elements = append(d.Elements, Element{Tag: "p", Text: sentences[(i*3+j)%len(sentences)]})
			if (i*j)%5 == 3 {
				d.Elements = append(d.Elements, Element{Tag: "p", Blank: true})
			}
		}
		docs[i] = d
	}
	return docs
}
