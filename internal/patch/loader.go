package patch

import (
	"fmt"
	"strconv"

	"github.com/nao1215/assetship/internal/compress"
)

// WasmContentType is the media type WebAssembly.instantiateStreaming requires.
const WasmContentType = "application/wasm"

// loaderFetch is the expression substituted for the loader's fetch call.
// It resolves to a Response like fetch does. When the server already sent a
// matching Content-Encoding the browser has decoded the body; otherwise the
// body is decoded in the page and re-wrapped with the wasm media type.
const loaderFetch = `(async () => {
  const response = await fetch(%[1]s);
  if (response.headers.get("Content-Encoding") === %[2]s) {
    return response;
  }
  const body = response.body.pipeThrough(new DecompressionStream(%[2]s));
  return new Response(body, { headers: { "Content-Type": %[3]s } });
})()`

// StreamDecodable reports whether browsers can decode enc with DecompressionStream.
func StreamDecodable(enc compress.Encoding) bool {
	return enc == compress.Gzip
}

// LoaderPatch returns the edit that makes a generated loader fetch the
// compressed sibling of artifact instead of the artifact itself.
// file is the loader path; artifact is the file name the loader fetches.
func LoaderPatch(file, artifact string, enc compress.Encoding) (Patch, error) {
	if !StreamDecodable(enc) {
		return Patch{}, fmt.Errorf("%w: %s", ErrNoStreamDecoder, enc)
	}

	return Patch{
		File: file,
		Find: "fetch(" + strconv.Quote(artifact) + ")",
		Replace: fmt.Sprintf(loaderFetch,
			strconv.Quote(artifact+enc.Extension()),
			strconv.Quote(enc.ContentEncoding()),
			strconv.Quote(WasmContentType),
		),
	}, nil
}
