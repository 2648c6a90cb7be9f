package s3m

// PlanKind distinguishes the two upload strategies the planner can pick,
// per spec §4.5.
type PlanKind int

const (
	PlanSinglePut PlanKind = iota
	PlanMultipart
)

// PartPlan is the C5 planner's decision for one upload: whether to issue
// a single PUT or a multipart upload, and at what part size.
type PartPlan struct {
	Kind      PlanKind
	PartSize  int64
	NumParts  int
	TotalSize int64 // -1 when unknown (stdin/transformed sources)
	Spool     bool  // true when the source must be buffered to disk first
}

// PlanUpload implements the C5 decision table (spec §4.5):
//
//   - known size, size <= baseSize:        single PUT
//   - known size, size >  baseSize:        multipart, part_size = max(baseSize, ceil(size/10000)),
//     the grown size rounded up to a whole MiB
//   - unknown size (stdin/transformed):     multipart, part_size = baseSize, spooled
//
// baseSize is the user-configured or default part size B. PlanUpload
// enforces the post-conditions before any network call: part_size must
// not exceed 5 GiB, parts must not exceed 10000, and total_size (when
// known) must not exceed 5 TiB.
func PlanUpload(sourceSize int64, baseSize int64, limits ServiceLimits) (PartPlan, error) {
	if baseSize <= 0 {
		baseSize = defaultMinPartSize
	}
	if err := limits.Validate(); err != nil {
		return PartPlan{}, err
	}

	if sourceSize < 0 {
		return finalizePlan(PartPlan{
			Kind:      PlanMultipart,
			PartSize:  baseSize,
			TotalSize: -1,
			Spool:     true,
		}, limits)
	}

	if sourceSize <= baseSize {
		return finalizePlan(PartPlan{
			Kind:      PlanSinglePut,
			PartSize:  sourceSize,
			NumParts:  1,
			TotalSize: sourceSize,
		}, limits)
	}

	partSize := baseSize
	if need := CalculatePartCount(sourceSize, partSize); need > limits.MaxParts {
		partSize = int64(ceilDiv(sourceSize, int64(limits.MaxParts)))
		partSize = roundToNearestMB(partSize)
	}

	plan := PartPlan{
		Kind:      PlanMultipart,
		PartSize:  partSize,
		TotalSize: sourceSize,
	}
	return finalizePlan(plan, limits)
}

func finalizePlan(p PartPlan, limits ServiceLimits) (PartPlan, error) {
	if p.PartSize > limits.MaxPartSize {
		return PartPlan{}, NewKindError(KindLimitExceeded, "required part size exceeds the 5 GiB maximum", nil)
	}
	const maxObjectSize int64 = 5 * 1024 * 1024 * 1024 * 1024
	if p.TotalSize >= 0 {
		if p.TotalSize > limits.MaxFileSize() || p.TotalSize > maxObjectSize {
			return PartPlan{}, NewKindError(KindLimitExceeded, "total size exceeds the 5 TiB service maximum", nil)
		}
		p.NumParts = CalculatePartCount(p.TotalSize, p.PartSize)
		if p.NumParts > limits.MaxParts {
			return PartPlan{}, NewKindError(KindLimitExceeded, "upload would require more than 10000 parts", nil)
		}
		if p.NumParts == 0 {
			p.NumParts = 1
		}
	}
	return p, nil
}

func ceilDiv(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// CalculatePartCount returns how many parts of partSize bytes cover size
// bytes (0 when partSize is 0).
func CalculatePartCount(size, partSize int64) int {
	return int(ceilDiv(size, partSize))
}

// roundToNearestMB rounds size up to the next whole MiB, so the grown part
// size never needs more parts than the unrounded one.
func roundToNearestMB(size int64) int64 {
	const mib = 1024 * 1024
	return ceilDiv(size, mib) * mib
}
