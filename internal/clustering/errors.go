package clustering

import "errors"

var (
	// ErrAmbiguousClusterization is returned when the clusters of a scope
	// belong to more than one clusterization.
	ErrAmbiguousClusterization = errors.New("ambiguous clusterization: more than one clusterization found on dataset")

	// ErrEmptyClusterSet is returned when clustering a scope without clusters.
	ErrEmptyClusterSet = errors.New("empty cluster set")

	// ErrNotImplemented is returned by operations that are declared but not
	// supported.
	ErrNotImplemented = errors.New("not implemented")

	// ErrDuplicateAnchorLabel marks a pipeline that gave two exemplar rows the
	// same label. FindClusters only logs it; pipelines may wrap it to fail.
	ErrDuplicateAnchorLabel = errors.New("duplicate anchor label")

	// ErrUnanchoredLabel is returned when a voter gets a label that no
	// exemplar row carries.
	ErrUnanchoredLabel = errors.New("label has no exemplar")

	// ErrClusterOutOfScope is returned when a membership mapping names a
	// cluster outside the scope being replaced.
	ErrClusterOutOfScope = errors.New("cluster outside of scope")
)
