package yolo

import (
	"strconv"
)

// FieldsPerLine is the number of space-separated fields in a label line:
// class, four box values and three values per keypoint.
const FieldsPerLine = 1 + BoxValues + KeypointValues

// floatPrecision is the number of decimals written for coordinates
const floatPrecision = 6

// AppendLabel appends the text form of l, without a trailing newline:
//
//	class cx cy w h x0 y0 v0 ... x20 y20 v20
func AppendLabel(dst []byte, l *Label) []byte {
	dst = strconv.AppendInt(dst, int64(l.Class), 10)
	for _, v := range [BoxValues]float64{l.Box.CenterX, l.Box.CenterY, l.Box.Width, l.Box.Height} {
		dst = append(dst, ' ')
		dst = appendCoord(dst, v)
	}
	for i := range l.Keypoints {
		kp := &l.Keypoints[i]
		dst = append(dst, ' ')
		dst = appendCoord(dst, kp.X)
		dst = append(dst, ' ')
		dst = appendCoord(dst, kp.Y)
		dst = append(dst, ' ')
		dst = strconv.AppendInt(dst, int64(kp.Visibility), 10)
	}
	return dst
}

// FormatLabel returns the text form of l
func FormatLabel(l *Label) string {
	return string(AppendLabel(make([]byte, 0, FieldsPerLine*10), l))
}

func appendCoord(dst []byte, v float64) []byte {
	return strconv.AppendFloat(dst, v, 'f', floatPrecision, 64)
}
