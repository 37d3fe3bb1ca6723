// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package foodclassifier

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Dathkousalya/image-classification-for-food/internal/workerspool"
	"github.com/disintegration/imaging"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	timage "github.com/gomlx/gomlx/pkg/core/tensors/images"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// DatasetSplit identifies one of the disjoint subsets of the dataset.
type DatasetSplit int

const (
	SplitTrain DatasetSplit = iota
	SplitValidation
	SplitTest
)

func (s DatasetSplit) String() string {
	switch s {
	case SplitTrain:
		return "train"
	case SplitValidation:
		return "validation"
	case SplitTest:
		return "test"
	}
	return "unknown"
}

// Sample is one image file and the index of its class.
type Sample struct {
	Path  string
	Label int
}

// Partition of the dataset into disjoint train, validation and test subsets.
type Partition struct {
	// ClassNames sorted by name: the label of a class is its index here.
	ClassNames []string

	Train, Validation, Test []Sample
}

// Subset returns the samples of the given split.
func (p *Partition) Subset(split DatasetSplit) []Sample {
	switch split {
	case SplitValidation:
		return p.Validation
	case SplitTest:
		return p.Test
	default:
		return p.Train
	}
}

// NumSamples is the total across the three splits.
func (p *Partition) NumSamples() int {
	return len(p.Train) + len(p.Validation) + len(p.Test)
}

// IsImageFile returns whether the file name has an extension of a supported image format.
func IsImageFile(name string) bool {
	_, err := imaging.FormatFromFilename(name)
	return err == nil
}

// listImages returns the sorted image files (full paths) of a class directory.
func listImages(classDir string) ([]string, error) {
	entries, err := os.ReadDir(classDir)
	if err != nil {
		return nil, fsError(err, "failed to list class directory %q", classDir)
	}
	var paths []string
	for _, entry := range entries {
		if _, isFile := resolveEntry(classDir, entry); !isFile || !IsImageFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(classDir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// DiscoverClasses returns the sorted names of the subdirectories of root that hold at least one image.
func DiscoverClasses(root string) ([]string, error) {
	if err := checkDir(root); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fsError(err, "failed to list dataset directory %q", root)
	}
	var classes []string
	for _, entry := range entries {
		if isDir, _ := resolveEntry(root, entry); !isDir {
			continue
		}
		images, err := listImages(filepath.Join(root, entry.Name()))
		if err != nil {
			return nil, err
		}
		if len(images) == 0 {
			klog.Warningf("Class directory %q has no images, ignoring it", entry.Name())
			continue
		}
		classes = append(classes, entry.Name())
	}
	sort.Strings(classes)
	if len(classes) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "no class subdirectories with images in %q", root)
	}
	return classes, nil
}

// SplitDataset partitions the images under root per class: with the files of a class sorted by name,
// the first floor(n*validationFraction) go to validation, the next floor(n*testFraction) to test and
// the rest to training. Every class keeps at least one training image.
func SplitDataset(root string, validationFraction, testFraction float64) (*Partition, error) {
	if validationFraction < 0 || testFraction < 0 || validationFraction+testFraction >= 1 {
		return nil, errors.Errorf("invalid split fractions validation=%g, test=%g: they must be >= 0 and sum < 1",
			validationFraction, testFraction)
	}
	classes, err := DiscoverClasses(root)
	if err != nil {
		return nil, err
	}
	p := &Partition{ClassNames: classes}
	for label, class := range classes {
		paths, err := listImages(filepath.Join(root, class))
		if err != nil {
			return nil, err
		}
		n := len(paths)
		numVal := int(math.Floor(float64(n) * validationFraction))
		numTest := int(math.Floor(float64(n) * testFraction))
		for numVal+numTest >= n && numVal+numTest > 0 {
			if numTest > 0 {
				numTest--
			} else {
				numVal--
			}
		}
		for ii, path := range paths {
			s := Sample{Path: path, Label: label}
			switch {
			case ii < numVal:
				p.Validation = append(p.Validation, s)
			case ii < numVal+numTest:
				p.Test = append(p.Test, s)
			default:
				p.Train = append(p.Train, s)
			}
		}
	}
	return p, nil
}

// LoadImage reads and decodes the image file at path.
// A missing file returns ErrNotFound, a file that can't be decoded returns ErrDecode.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fsError(err, "failed to open image %q", path)
	}
	defer func() { _ = f.Close() }()
	img, err := imaging.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(withKind(ErrDecode, err), "failed to decode image %q", path)
	}
	return img, nil
}

// ResizeImage to size x size, without preserving the aspect ratio.
func ResizeImage(img image.Image, size int) image.Image {
	b := img.Bounds()
	if b.Dx() == size && b.Dy() == size {
		return img
	}
	return imaging.Resize(img, size, size, imaging.NearestNeighbor)
}

// ValidateSamples decodes every sample once, in parallel. With config.InvalidImages set to InvalidImagesFail
// it returns the ErrDecode error of the first undecodable file, with InvalidImagesSkip it logs and drops them.
// Missing or unreadable files are always an error.
func ValidateSamples(samples []Sample, config *Config) ([]Sample, error) {
	policy := config.InvalidImages
	if policy != InvalidImagesFail && policy != InvalidImagesSkip {
		return nil, errors.Errorf("invalid %q value %q: valid values are %q and %q",
			ParamInvalidImages, policy, InvalidImagesFail, InvalidImagesSkip)
	}
	var pBar *progressbar.ProgressBar
	if !config.Quiet && len(samples) > 0 {
		pBar = progressbar.NewOptions(len(samples),
			progressbar.OptionSetDescription("Checking images"),
			progressbar.OptionUseANSICodes(true),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionSetTheme(progressbar.ThemeUnicode),
		)
	}
	loadErrs := make([]error, len(samples))
	_ = workerspool.New(config.DecodeParallelism).Map(len(samples), func(ii int) error {
		_, loadErrs[ii] = LoadImage(samples[ii].Path)
		if pBar != nil {
			_ = pBar.Add(1)
		}
		return nil
	})
	if pBar != nil {
		_ = pBar.Close()
		fmt.Println()
	}

	valid := make([]Sample, 0, len(samples))
	for ii, s := range samples {
		err := loadErrs[ii]
		if err == nil {
			valid = append(valid, s)
			continue
		}
		if policy == InvalidImagesFail || !errors.Is(err, ErrDecode) {
			return nil, err
		}
		klog.Warningf("Skipping invalid image: %v", err)
	}
	return valid, nil
}

// Dataset implements train.Dataset over a list of image files. It reads images lazily, on each Yield,
// resizes them to the configured size and scales pixel values to [0, 1].
//
// It yields inputs=[images shaped [batch, size, size, 3]] and labels=[one-hot shaped [batch, numClasses]].
// The last batch of an epoch may be smaller.
type Dataset struct {
	name, shortName string
	samples         []Sample
	numClasses      int
	imageSize       int
	batchSize       int
	toTensor        *timage.ToTensorConfig
	pool            *workerspool.Pool

	// Augmentation, only for training.
	angleStdDev  float64
	flipRandomly bool
	rng          *rand.Rand

	// mu protects shuffle, order and next.
	mu      sync.Mutex
	shuffle *rand.Rand
	order   []int
	next    int
}

var _ train.Dataset = (*Dataset)(nil)

// NewDataset creates a Dataset for the samples. If shuffle is not nil, the order of the samples
// is reshuffled at every Reset. Augmentation is only applied if shuffle is set.
func NewDataset(name string, samples []Sample, numClasses int, config *Config, batchSize int, shuffle *rand.Rand) *Dataset {
	ds := &Dataset{
		name:       name,
		shortName:  name,
		samples:    samples,
		numClasses: numClasses,
		imageSize:  config.ImageSize,
		batchSize:  batchSize,
		toTensor:   timage.ToTensor(config.DType),
		pool:       workerspool.New(config.DecodeParallelism),
		shuffle:    shuffle,
	}
	if len(name) > 3 {
		ds.shortName = name[:3]
	}
	if shuffle != nil {
		ds.angleStdDev = config.AngleStdDev
		ds.flipRandomly = config.FlipRandomly
		ds.rng = rand.New(rand.NewSource(config.Seed + 1))
	}
	ds.order = make([]int, len(samples))
	for ii := range ds.order {
		ds.order[ii] = ii
	}
	ds.Reset()
	return ds
}

// Name implements train.Dataset.
func (ds *Dataset) Name() string { return ds.name }

// ShortName implements train.HasShortName.
func (ds *Dataset) ShortName() string { return ds.shortName }

// Samples returns the samples in the dataset, in their original order.
func (ds *Dataset) Samples() []Sample { return ds.samples }

// NumClasses is the width of the one-hot labels.
func (ds *Dataset) NumClasses() int { return ds.numClasses }

// Reset implements train.Dataset. It restarts the dataset and, for training, reshuffles it.
func (ds *Dataset) Reset() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.next = 0
	if ds.shuffle != nil {
		ds.shuffle.Shuffle(len(ds.order), func(i, j int) {
			ds.order[i], ds.order[j] = ds.order[j], ds.order[i]
		})
	}
}

// nextBatch returns the samples of the next batch, or io.EOF.
func (ds *Dataset) nextBatch() ([]Sample, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.next >= len(ds.order) {
		return nil, io.EOF
	}
	end := min(ds.next+ds.batchSize, len(ds.order))
	batch := make([]Sample, 0, end-ds.next)
	for _, idx := range ds.order[ds.next:end] {
		batch = append(batch, ds.samples[idx])
	}
	ds.next = end
	return batch, nil
}

// YieldImages returns the next batch as Go images (resized and augmented) and their labels.
// Images are decoded in parallel; augmentation runs in order, so it is reproducible for a given seed.
func (ds *Dataset) YieldImages() (images []image.Image, labels []int, err error) {
	batch, err := ds.nextBatch()
	if err != nil {
		return nil, nil, err
	}
	images = make([]image.Image, len(batch))
	labels = make([]int, len(batch))
	err = ds.pool.Map(len(batch), func(ii int) error {
		img, err := LoadImage(batch[ii].Path)
		images[ii] = img
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	for ii, s := range batch {
		images[ii] = ResizeImage(ds.augment(images[ii]), ds.imageSize)
		labels[ii] = s.Label
	}
	return images, labels, nil
}

// augment applies the random rotation and flip configured for training.
func (ds *Dataset) augment(img image.Image) image.Image {
	if ds.rng == nil {
		return img
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.angleStdDev > 0 {
		img = imaging.Rotate(img, ds.rng.NormFloat64()*ds.angleStdDev, color.Black)
	}
	if ds.flipRandomly && ds.rng.Intn(2) == 1 {
		img = imaging.FlipH(img)
	}
	return img
}

// Yield implements train.Dataset.
func (ds *Dataset) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	spec = ds
	var images []image.Image
	var classes []int
	images, classes, err = ds.YieldImages()
	if err != nil {
		return
	}
	inputs = []*tensors.Tensor{ds.toTensor.Batch(images)}
	labels = []*tensors.Tensor{tensors.FromValue(OneHotLabels(classes, ds.numClasses))}
	return
}

// OneHotLabels encodes the labels as rows of float32 with a single 1 at the label position.
func OneHotLabels(labels []int, numClasses int) [][]float32 {
	rows := make([][]float32, len(labels))
	for ii, label := range labels {
		rows[ii] = make([]float32, numClasses)
		if label >= 0 && label < numClasses {
			rows[ii][label] = 1
		}
	}
	return rows
}

// Datasets built for one run of training or evaluation.
type Datasets struct {
	Partition *Partition

	// Train is shuffled and augmented; TrainEval, Validation and Test are in a fixed order.
	Train, TrainEval, Validation, Test *Dataset
}

// NewDatasets splits the images under config.DataDir, validates them and creates the datasets.
func NewDatasets(config *Config) (*Datasets, error) {
	p, err := SplitDataset(config.DataDir, config.ValidationFraction, config.TestFraction)
	if err != nil {
		return nil, err
	}
	for _, split := range []DatasetSplit{SplitTrain, SplitValidation, SplitTest} {
		samples, err := ValidateSamples(p.Subset(split), config)
		if err != nil {
			return nil, errors.WithMessagef(err, "validating %s images", split)
		}
		switch split {
		case SplitTrain:
			p.Train = samples
		case SplitValidation:
			p.Validation = samples
		case SplitTest:
			p.Test = samples
		}
	}
	if len(p.Train) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "no valid training images in %q", config.DataDir)
	}
	numClasses := len(p.ClassNames)
	shuffle := rand.New(rand.NewSource(config.Seed))
	return &Datasets{
		Partition:  p,
		Train:      NewDataset("train", p.Train, numClasses, config, config.BatchSize, shuffle),
		TrainEval:  NewDataset("train-eval", p.Train, numClasses, config, config.EvalBatchSize, nil),
		Validation: NewDataset("validation", p.Validation, numClasses, config, config.EvalBatchSize, nil),
		Test:       NewDataset("test", p.Test, numClasses, config, config.EvalBatchSize, nil),
	}, nil
}
