package filename_codec

import (
	"errors"
	"strconv"
	"strings"
)

const (
	// GeneratedPrefix 生成图片文件名前缀
	GeneratedPrefix = "generated-"
	// GeneratedExt 生成图片文件扩展名
	GeneratedExt = ".png"
)

// ErrNotGenerated 文件名不是生成图片的编码格式
var ErrNotGenerated = errors.New("文件名不是生成图片格式")

// Encode 将模型ID和毫秒时间戳编码为上传文件名
func Encode(modelID string, timestamp int64) string {
	return GeneratedPrefix + modelID + "-" + strconv.FormatInt(timestamp, 10) + GeneratedExt
}

// Decode 从上传文件名解析模型ID和时间戳
// 以最后一个连字符作为模型与时间戳的分隔点，模型ID末尾带数字段时会产生歧义，保持该行为
// 时间戳只接受十进制整数（可带符号），科学计数法等写法视为非生成文件名
func Decode(filename string) (string, int64, error) {
	if !strings.HasPrefix(filename, GeneratedPrefix) || !strings.HasSuffix(filename, GeneratedExt) {
		return "", 0, ErrNotGenerated
	}

	body := strings.TrimSuffix(strings.TrimPrefix(filename, GeneratedPrefix), GeneratedExt)

	idx := strings.LastIndex(body, "-")
	if idx == -1 {
		return "", 0, ErrNotGenerated
	}

	modelID := body[:idx]
	if modelID == "" {
		return "", 0, ErrNotGenerated
	}

	timestamp, err := strconv.ParseInt(body[idx+1:], 10, 64)
	if err != nil {
		return "", 0, ErrNotGenerated
	}

	return modelID, timestamp, nil
}

// IsGenerated 判断文件名是否为生成图片
func IsGenerated(filename string) bool {
	_, _, err := Decode(filename)
	return err == nil
}
