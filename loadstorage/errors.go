package loadstorage

import "errors"

var (
	// ErrJobNotFound indicates that the referenced job file does not
	// exist in the folder a transition expects it to start from.
	ErrJobNotFound = errors.New("loadstorage: job not found")

	// ErrPackageNotFound indicates that the referenced load package
	// directory does not exist.
	ErrPackageNotFound = errors.New("loadstorage: package not found")

	// ErrPackageNotArchivable is returned by CompleteLoadPackage when
	// new_jobs or started_jobs is non-empty and aborted is false.
	ErrPackageNotArchivable = errors.New("loadstorage: package has unfinished jobs, cannot archive")
)
