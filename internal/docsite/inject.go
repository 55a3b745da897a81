package docsite

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// InjectModuleScript inserts <script type="module" src="src"></script> right
// before the closing body tag, or at the end of the document when the page
// omits it. A page that already loads src is returned unchanged with
// injected=false. The rest of the document is kept byte for byte.
func InjectModuleScript(content, src string) (result string, injected bool, err error) {
	z := html.NewTokenizer(strings.NewReader(content))
	offset := 0
	bodyEnd := -1

	for {
		tt := z.Next()
		size := len(z.Raw())

		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				tag := `<script type="module" src="` + html.EscapeString(src) + `"></script>` + "\n"
				if bodyEnd < 0 {
					if content != "" && !strings.HasSuffix(content, "\n") {
						tag = "\n" + tag
					}
					return content + tag, true, nil
				}
				return content[:bodyEnd] + tag + content[bodyEnd:], true, nil
			}
			return "", false, z.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) == "script" && hasAttr && scriptSrc(z) == src {
				return content, false, nil
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == "body" {
				bodyEnd = offset
			}
		}

		offset += size
	}
}

func scriptSrc(z *html.Tokenizer) string {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "src" {
			return string(val)
		}
		if !more {
			return ""
		}
	}
}
