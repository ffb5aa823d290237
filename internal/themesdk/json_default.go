//go:build !sonic

package themesdk

import (
	"github.com/goccy/go-json"
)

// codec handed to imroc/req
var jsonMarshal = json.Marshal
var jsonUnmarshal = json.Unmarshal
