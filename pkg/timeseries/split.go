package timeseries

import "errors"

var ErrBadTrainPercent = errors.New("train percentage must be in (0, 100]")

// Split partitions a series into a training prefix and an evaluation suffix.
// The first floor(len*trainPercent/100) samples form the training set, the
// remainder the test set. Order is preserved. With trainPercent == 100 the
// test series is empty.
func Split(s *Series, trainPercent float64) (train, test *Series, err error) {
	if trainPercent <= 0 || trainPercent > 100 {
		return nil, nil, ErrBadTrainPercent
	}
	cut := int(float64(s.Len()) * trainPercent / 100)
	return s.Slice(0, cut), s.Slice(cut, s.Len()), nil
}
