// Labels recorded simulator captures with 2D/3D ground truth and writes them as frame JSON, KITTI,
// TFRecord, VGG Image Annotator or SQLite datasets.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sensorable/simlabel"
	"github.com/sirupsen/logrus"
)

// Config holds the validated command line arguments.
type Config struct {
	CaptureDir string `validate:"required"`
	To         string `validate:"oneof=json kitti tfrecord via sqlite"`

	LabelOutPaths    []string `validate:"min=1,dive,required"`
	LabelOutSplits   []int    `validate:"min=1,dive,gte=0,lte=100"`
	TFRecordLabelMap string   `validate:"required_if=To tfrecord"`
	NumShards        int      `validate:"gte=1"`
	MaxImageSide     int      `validate:"gte=0"`
	RenderDir        string
	JPEGQuality      int `validate:"min=1,max=100"`

	MaxDistance float64 `validate:"gte=0"`
	Workers     int     `validate:"gte=0"`
	SequenceID  string
	Seed        int64

	ClassMappings []string
	Filter        simlabel.FilterOptions

	LogLevel string `validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFile  string
}

var cfg Config

func init() {
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage of %s:\n", filepath.Base(os.Args[0]))
		_, _ = fmt.Fprintln(os.Stderr, "  json output options:\t\t-labels-out <dir>")
		_, _ = fmt.Fprintln(os.Stderr, "  kitti output options:\t\t-labels-out <dir>")
		_, _ = fmt.Fprintln(os.Stderr, "  tfrecord output options:\t-labels-out <file>"+
			" -tfrecord-label-map-file <file> [-num-shards] [-max-image-side]")
		_, _ = fmt.Fprintln(os.Stderr, "  via output options:\t\t-labels-out <file>")
		_, _ = fmt.Fprintln(os.Stderr, "  sqlite output options:\t-labels-out <file>")
		_, _ = fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}

	// Environment defaults. A missing .env file is not an error.
	_ = godotenv.Load()
	logLevel := os.Getenv("SIMLABEL_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	flag.StringVar(&cfg.CaptureDir, "captures", "",
		"The `path` to the capture directory with <frame>.json, <frame>_inst.png and <frame>.png")
	flag.StringVar(&cfg.To, "to", "json", "The target `format` {json, kitti, tfrecord, via, sqlite}")
	outPaths := flag.String("labels-out", "",
		"The comma-separated paths (`path[,...]`) to the label output files or directories; must"+
			" be one path per value in flag -split")
	outSplits := flag.String("split", "100",
		"The comma-separated output split percentages (`percent[,...]`) to divide frames into;"+
			" must add up to 100%")
	flag.Int64Var(&cfg.Seed, "seed", time.Now().UnixNano(), "The random `seed` for -split")
	flag.StringVar(&cfg.TFRecordLabelMap, "tfrecord-label-map-file", "",
		"The TFRecord label map file `path`")
	flag.IntVar(&cfg.NumShards, "num-shards", 1, "The number of shard files to create (tfrecord only)")
	flag.IntVar(&cfg.MaxImageSide, "max-image-side", 0,
		"Downsample images whose longer side exceeds `length` pixels (tfrecord only; zero keeps the size)")
	flag.StringVar(&cfg.RenderDir, "render-out", "",
		"The `path` to a directory for debug renderings of the boxes (empty disables rendering)")
	flag.IntVar(&cfg.JPEGQuality, "jpeg-quality", 90, "The quality to use when encoding JPEGs [1, 100]")

	flag.Float64Var(&cfg.MaxDistance, "max-distance", simlabel.DefaultMaxDistance,
		"The max. distance in `metres` from the ego vehicle to annotate an actor (zero disables)")
	flag.IntVar(&cfg.Workers, "workers", 0,
		"The number of actors annotated concurrently (zero uses all CPUs)")
	flag.StringVar(&cfg.SequenceID, "sequence-id", "",
		"The sequence `id` stored with every frame (empty generates a new one)")

	mappings := flag.String("map-classes", "",
		"Comma-separated list of old=new class (sub-)string replacements")
	filterClasses := flag.String("filter-classes", "",
		"Comma-separated list of classes to keep (after map-classes; empty string keeps all)")
	flag.IntVar(&cfg.Filter.MinBoxWidth, "min-bbox-width", 0,
		"The min. required width in `pixels` for 2D boxes")
	flag.IntVar(&cfg.Filter.MinBoxHeight, "min-bbox-height", 0,
		"The min. required height in `pixels` for 2D boxes")
	flag.BoolVar(&cfg.Filter.Require2D, "require-2d", false,
		"Drop objects that have no visible pixel in the image")
	flag.BoolVar(&cfg.Filter.RequireObjects, "require-objects", false,
		"Drop frames with no objects (after other filters)")

	flag.StringVar(&cfg.LogLevel, "log-level", logLevel, "The log `level`")
	flag.StringVar(&cfg.LogFile, "log-file", os.Getenv("SIMLABEL_LOG_FILE"),
		"Also log to the rotated file at `path`")

	flag.Parse()

	printUsageAndExit := func(msg ...interface{}) {
		_, _ = fmt.Fprintln(os.Stderr, msg...)
		flag.Usage()
		os.Exit(1)
	}

	if *outPaths != "" {
		cfg.LabelOutPaths = strings.Split(*outPaths, ",")
	}
	if *mappings != "" {
		cfg.ClassMappings = strings.Split(*mappings, ",")
	}
	if *filterClasses != "" {
		cfg.Filter.Classes = strings.Split(*filterClasses, ",")
	}

	// Parse splits as cumulative int percentages.
	var splitSum int
	for _, v := range strings.Split(*outSplits, ",") {
		i, err := strconv.Atoi(v)
		if err != nil || i < 0 || i > 100 {
			printUsageAndExit("Invalid value in -split:", v)
		}
		splitSum += i
		cfg.LabelOutSplits = append(cfg.LabelOutSplits, splitSum)
	}
	if splitSum != 100 {
		printUsageAndExit("The values in -split must add up to 100%")
	}

	if err := validator.New().Struct(&cfg); err != nil {
		printUsageAndExit("Invalid arguments:", err)
	}
	if len(cfg.LabelOutSplits) != len(cfg.LabelOutPaths) {
		printUsageAndExit("The number of output datasets defined by -split and the number of" +
			" paths in -labels-out must match")
	}

	// Clean path arguments.
	cfg.CaptureDir = filepath.Clean(cfg.CaptureDir)
	for i, v := range cfg.LabelOutPaths {
		cfg.LabelOutPaths[i] = filepath.Clean(v)
		if cfg.LabelOutPaths[i] == cfg.CaptureDir {
			printUsageAndExit("The capture and output paths cannot be identical")
		}
	}
	if cfg.RenderDir != "" {
		cfg.RenderDir = filepath.Clean(cfg.RenderDir)
	}
	if cfg.SequenceID == "" {
		cfg.SequenceID = simlabel.NewSequenceID()
	}
}

func main() {
	log, err := simlabel.NewFileLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	simlabel.SetLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := annotateCaptures(ctx, log)
	if err != nil {
		log.Fatal("Annotation failed: ", err)
	}
	data.AssignSequence(cfg.SequenceID)

	// Map classes.
	if err := data.MapClasses(cfg.ClassMappings); err != nil {
		log.Fatal("Failed to map classes: ", err)
	}

	// Apply filters.
	data.Filter(cfg.Filter)

	// Split data into output datasets.
	datasets := []simlabel.FrameAnnotations{data}
	if len(cfg.LabelOutSplits) > 1 {
		rng := rand.New(rand.NewSource(cfg.Seed))
		if datasets, err = data.Split(cfg.LabelOutSplits, rng); err != nil {
			log.Fatal("Failed to split the dataset: ", err)
		}
	}

	// Write output datasets.
	for i, data := range datasets {
		outPath := cfg.LabelOutPaths[i]
		if err := writeDataset(ctx, outPath, data); err != nil {
			log.Fatal("Conversion failed: ", err)
		}
		log.WithField("path", outPath).Infof("Successfully wrote labels for %d frames", len(data))
	}

	log.WithField("sequence_id", cfg.SequenceID).Info("Total number of labelled frames: ", len(data))
}

// annotateCaptures annotates all captured frames in frame order.
func annotateCaptures(ctx context.Context, log logrus.FieldLogger) (simlabel.FrameAnnotations, error) {
	captures, err := simlabel.LoadCaptures(cfg.CaptureDir)
	if err != nil {
		return nil, err
	}
	if len(captures) == 0 {
		return nil, fmt.Errorf("no captured frames in %q", cfg.CaptureDir)
	}

	annotator, err := simlabel.NewAnnotator(captures[0].Snapshot.Camera.Camera(),
		simlabel.WithMaxDistance(cfg.MaxDistance),
		simlabel.WithWorkers(cfg.Workers))
	if err != nil {
		return nil, err
	}

	if cfg.RenderDir != "" {
		if err := os.MkdirAll(cfg.RenderDir, 0755); err != nil {
			return nil, err
		}
	}

	data := make(simlabel.FrameAnnotations, 0, len(captures))
	for _, c := range captures {
		flog := log.WithField("frame_id", c.Snapshot.FrameID)

		in, err := c.Input()
		if err != nil {
			flog.Warnf("Skipping frame: %v", err)
			continue
		}
		frame, err := annotator.Annotate(ctx, in)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			flog.Warnf("Skipping frame: %v", err)
			continue
		}
		frame.ImagePath = c.ImagePath

		if cfg.RenderDir != "" && frame.ImagePath != "" {
			if err := renderFrame(*frame); err != nil {
				flog.Warnf("Rendering failed: %v", err)
			}
		}

		data = append(data, *frame)
	}

	return data, nil
}

// renderFrame draws the 2D and 3D boxes of frame onto its camera image.
func renderFrame(frame simlabel.FrameAnnotation) error {
	img, err := simlabel.LoadImage(frame.ImagePath)
	if err != nil {
		return err
	}

	out := simlabel.RenderBoxes3D(simlabel.RenderBoxes2D(img, frame), frame)
	path := filepath.Join(cfg.RenderDir, strconv.FormatUint(frame.FrameID, 10)+".jpg")
	return simlabel.SaveImage(path, out, cfg.JPEGQuality)
}

// writeDataset writes data to outPath in the target format.
func writeDataset(ctx context.Context, outPath string, data simlabel.FrameAnnotations) error {
	switch cfg.To {
	case "json":
		if err := os.MkdirAll(outPath, 0755); err != nil {
			return err
		}
		for _, frame := range data {
			if _, err := simlabel.WriteFrameJSON(outPath, frame); err != nil {
				return err
			}
		}
		return nil
	case "kitti":
		return simlabel.WriteKitti(outPath, simlabel.ToKitti(data))
	case "tfrecord":
		return simlabel.WriteCustomTFRecord(outPath, cfg.TFRecordLabelMap, data, simlabel.FrameImagePath,
			simlabel.TFRecordOptions{NumShards: cfg.NumShards, MaxSide: cfg.MaxImageSide}, nil)
	case "via":
		return simlabel.WriteVIA(outPath, simlabel.ToVIA(data, simlabel.FrameImagePath))
	case "sqlite":
		store, err := simlabel.OpenStore(outPath)
		if err != nil {
			return err
		}
		defer store.Close()
		for _, frame := range data {
			if err := store.SaveFrame(ctx, frame); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unsupported output format %q", cfg.To)
}
