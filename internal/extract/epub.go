package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/net/html"
)

// containerXML is META-INF/container.xml, which points at the OPF package.
type containerXML struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

// opfPackage is the subset of the OPF package document we need: metadata,
// the manifest (id → href) and the spine (reading order of manifest ids).
type opfPackage struct {
	Metadata struct {
		Title    string `xml:"title"`
		Creator  string `xml:"creator"`
		Language string `xml:"language"`
	} `xml:"metadata"`
	Manifest struct {
		Items []struct {
			ID   string `xml:"id,attr"`
			Href string `xml:"href,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// FromEPUB extracts spine-ordered text and metadata from EPUB bytes.
func FromEPUB(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	opfPath, err := findOPFPath(files)
	if err != nil {
		return nil, err
	}

	opfData, err := readZipFile(files, opfPath)
	if err != nil {
		return nil, err
	}
	var pkg opfPackage
	if err := xml.Unmarshal(opfData, &pkg); err != nil {
		return nil, fmt.Errorf("parse package document: %w", err)
	}

	hrefs := make(map[string]string, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		hrefs[item.ID] = item.Href
	}

	// Spine hrefs are relative to the OPF's directory.
	opfDir := path.Dir(opfPath)
	var chapters []string
	for _, ref := range pkg.Spine.ItemRefs {
		href, ok := hrefs[ref.IDRef]
		if !ok {
			continue
		}
		chapterPath := href
		if opfDir != "." {
			chapterPath = path.Join(opfDir, href)
		}
		chapterData, err := readZipFile(files, chapterPath)
		if err != nil {
			continue
		}
		text := htmlToText(chapterData)
		if strings.TrimSpace(text) != "" {
			chapters = append(chapters, text)
		}
	}

	text := strings.TrimSpace(strings.Join(chapters, "\n\n"))
	if text == "" {
		return nil, fmt.Errorf("epub contains no readable text")
	}

	return &Document{
		Text:     text,
		Title:    strings.TrimSpace(pkg.Metadata.Title),
		Author:   strings.TrimSpace(pkg.Metadata.Creator),
		Language: strings.TrimSpace(pkg.Metadata.Language),
	}, nil
}

// findOPFPath locates the OPF package document via container.xml, falling
// back to scanning for any .opf entry.
func findOPFPath(files map[string]*zip.File) (string, error) {
	if data, err := readZipFile(files, "META-INF/container.xml"); err == nil {
		var c containerXML
		if err := xml.Unmarshal(data, &c); err == nil {
			for _, rf := range c.Rootfiles {
				if rf.FullPath != "" {
					return rf.FullPath, nil
				}
			}
		}
	}
	for name := range files {
		if strings.HasSuffix(name, ".opf") {
			return name, nil
		}
	}
	return "", fmt.Errorf("no package document found")
}

func readZipFile(files map[string]*zip.File, name string) ([]byte, error) {
	f, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("missing epub entry %q", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open epub entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// blockTags are elements whose boundaries become paragraph breaks.
var blockTags = map[string]bool{
	"p": true, "div": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "li": true, "br": true,
	"blockquote": true, "section": true, "article": true, "tr": true,
}

// skipTags are elements whose text content is never prose.
var skipTags = map[string]bool{
	"script": true, "style": true, "head": true, "title": true,
}

// htmlToText walks an XHTML chapter and flattens it to text, turning block
// element boundaries into paragraph breaks.
func htmlToText(data []byte) string {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return ""
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if skipTags[n.Data] {
				return
			}
			if blockTags[n.Data] {
				b.WriteString("\n\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			b.WriteString("\n\n")
		}
	}
	walk(root)

	return collapseBlankLines(b.String())
}

// collapseBlankLines squeezes runs of blank lines down to one empty line and
// normalizes in-line whitespace.
func collapseBlankLines(s string) string {
	var paras []string
	for _, para := range strings.Split(s, "\n\n") {
		fields := strings.Fields(para)
		if len(fields) > 0 {
			paras = append(paras, strings.Join(fields, " "))
		}
	}
	return strings.Join(paras, "\n\n")
}
