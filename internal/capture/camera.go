package capture

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

const jpegQuality = 90

// FrameGrabber - устройство, умеющее отдать текущий кадр в JPEG
type FrameGrabber interface {
	Device
	Grab() ([]byte, error)
}

// Camera - сессия камеры с доступом к кадрам
type Camera struct {
	*Session
	grabber FrameGrabber
}

// NewCamera оборачивает устройство в сессию камеры
func NewCamera(name string, grabber FrameGrabber, logger *logrus.Logger) *Camera {
	return &Camera{
		Session: NewSession(name, grabber, logger),
		grabber: grabber,
	}
}

// Frame возвращает текущий кадр или ErrNoActiveStream, если камера не активна
func (c *Camera) Frame() ([]byte, error) {
	var frame []byte
	err := c.Do(func() error {
		var err error
		frame, err = c.grabber.Grab()
		return err
	})
	if err != nil {
		return nil, err
	}
	return frame, nil
}

// OpenCVDevice - камера или поток через OpenCV
type OpenCVDevice struct {
	source string
	width  int
	height int
	cap    *gocv.VideoCapture
	mat    gocv.Mat
}

// NewOpenCVDevice принимает индекс локальной камеры ("0") или URL потока
func NewOpenCVDevice(source string, width, height int) *OpenCVDevice {
	return &OpenCVDevice{source: source, width: width, height: height}
}

func (d *OpenCVDevice) Open() error {
	var (
		vc  *gocv.VideoCapture
		err error
	)
	if idx, convErr := strconv.Atoi(d.source); convErr == nil {
		vc, err = gocv.OpenVideoCapture(idx)
	} else {
		vc, err = gocv.OpenVideoCapture(d.source)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return fmt.Errorf("%w: %s is not opened", ErrUnavailable, d.source)
	}
	if d.width > 0 && d.height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(d.width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(d.height))
	}
	vc.Set(gocv.VideoCaptureBufferSize, 1)

	d.cap = vc
	d.mat = gocv.NewMat()
	return nil
}

func (d *OpenCVDevice) Grab() ([]byte, error) {
	if d.cap == nil {
		return nil, ErrNoActiveStream
	}
	if ok := d.cap.Read(&d.mat); !ok || d.mat.Empty() {
		return nil, fmt.Errorf("capture: empty frame from %s", d.source)
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, d.mat, []int{gocv.IMWriteJpegQuality, jpegQuality})
	if err != nil {
		return nil, fmt.Errorf("capture: encode frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

func (d *OpenCVDevice) Close() error {
	if d.cap == nil {
		return nil
	}
	err := d.cap.Close()
	_ = d.mat.Close()
	d.cap = nil
	return err
}
