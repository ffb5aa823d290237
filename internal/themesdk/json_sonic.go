//go:build sonic

package themesdk

import (
	"github.com/bytedance/sonic"
)

// codec handed to imroc/req
var jsonMarshal = sonic.Marshal
var jsonUnmarshal = sonic.Unmarshal
