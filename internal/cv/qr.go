package cv

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/skip2/go-qrcode"
)

// EncodeQR 把 URL 编码为黑白二维码位图，纠错级别 Medium。相同输入总是得到相同的图像。
func EncodeQR(url string, size int) (image.Image, error) {
	if url == "" {
		return nil, errors.New("encode qr: empty url")
	}
	if size <= 0 {
		return nil, fmt.Errorf("encode qr: invalid size %d", size)
	}

	q, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	q.ForegroundColor = color.Black
	q.BackgroundColor = color.White

	return q.Image(size), nil
}
