package tracking

// Raw camera images and their calibration data. Receiving image data
// requires PolicyImages to be set.

// Distortion map dimensions. The map is a fixed-size low-resolution grid of
// texture coordinates into the raw camera image.
const (
	DistortionWidth  = 64
	DistortionHeight = 64

	// distortionStride is the number of float32 values per map row (one u
	// and one v per entry).
	distortionStride = DistortionWidth * 2
)

// Camera identifies one of the two cameras on the tracking device.
type Camera int

const (
	CameraLeft Camera = iota
	CameraRight
)

func (c Camera) String() string {
	switch c {
	case CameraLeft:
		return "left"
	case CameraRight:
		return "right"
	default:
		return "unknown"
	}
}

// ImageList is a set of camera images captured at the same instant, one per
// camera.
type ImageList []Image

// Image is a raw camera image alongside its calibration data. The zero Image
// is invalid.
type Image struct {
	camera        Camera
	sequenceID    int64
	timestamp     Timestamp
	width         int
	height        int
	bytesPerPixel int
	data          []byte
	distortion    []float32
}

// NewImage builds an image view. It is intended for Session implementations.
// data holds width*height*bytesPerPixel bytes; distortion holds
// DistortionHeight rows of DistortionWidth u/v pairs and may be nil when the
// session does not expose calibration data.
func NewImage(camera Camera, sequenceID int64, ts Timestamp, width, height, bytesPerPixel int, data []byte, distortion []float32) Image {
	return Image{
		camera:        camera,
		sequenceID:    sequenceID,
		timestamp:     ts,
		width:         width,
		height:        height,
		bytesPerPixel: bytesPerPixel,
		data:          data,
		distortion:    distortion,
	}
}

// Valid reports whether this image carries pixel data.
func (im Image) Valid() bool {
	return im.width > 0 && im.height > 0 && len(im.data) > 0
}

// SequenceID returns the capture sequence number; both cameras' images from
// the same capture share it.
func (im Image) SequenceID() int64 {
	return im.sequenceID
}

// Camera returns which camera captured this image.
func (im Image) Camera() Camera {
	return im.camera
}

// Timestamp returns the capture time of this image.
func (im Image) Timestamp() Timestamp {
	return im.timestamp
}

func (im Image) Width() int {
	return im.width
}

func (im Image) Height() int {
	return im.height
}

func (im Image) BytesPerPixel() int {
	return im.bytesPerPixel
}

// Raw returns the raw pixel bytes. The slice aliases session state scoped to
// this query; copy it to retain it.
func (im Image) Raw() []byte {
	return im.data
}

// Data returns an indexed view of the pixel data.
func (im Image) Data() ImageData {
	return ImageData{raw: im.data, width: im.width}
}

// Distortion returns the calibration map for this image.
func (im Image) Distortion() DistortionMap {
	return DistortionMap{raw: im.distortion}
}

// ImageData is an indexed view of one image's pixel bytes.
type ImageData struct {
	raw   []byte
	width int
}

// Raw returns the underlying bytes.
func (d ImageData) Raw() []byte {
	return d.raw
}

// Pixel returns the brightness value at the given coordinates.
func (d ImageData) Pixel(x, y int) byte {
	return d.raw[y*d.width+x]
}

// Rows returns the pixel data split into rows.
func (d ImageData) Rows() [][]byte {
	if d.width == 0 {
		return nil
	}
	rows := make([][]byte, 0, len(d.raw)/d.width)
	for off := 0; off+d.width <= len(d.raw); off += d.width {
		rows = append(rows, d.raw[off:off+d.width])
	}
	return rows
}

// DistortionMap is the calibration data for one camera image: a
// DistortionWidth by DistortionHeight grid where every entry holds the u/v
// texture coordinates of the corresponding area of the raw image. The map is
// smaller than the image, so lookups between grid points need linear
// interpolation.
type DistortionMap struct {
	raw []float32
}

// Raw returns the underlying float data, distortionStride values per row.
func (d DistortionMap) Raw() []float32 {
	return d.raw
}

// Empty reports whether the session provided no calibration data.
func (d DistortionMap) Empty() bool {
	return len(d.raw) == 0
}

// Entry returns the map entry at grid position (x, y).
func (d DistortionMap) Entry(x, y int) DistortionEntry {
	off := y*distortionStride + x*2
	return DistortionEntry{U: d.raw[off], V: d.raw[off+1]}
}

// DistortionEntry is one u/v coordinate pair in the distortion map.
type DistortionEntry struct {
	U float32
	V float32
}

// Valid reports whether there is camera data for this area of the image.
func (e DistortionEntry) Valid() bool {
	return e.U >= 0 && e.U <= 1 && e.V >= 0 && e.V <= 1
}
