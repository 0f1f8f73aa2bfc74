package pipeline

import "errors"

var (
	ErrBaseImage            = errors.New("base image unavailable")
	ErrSystemPackages       = errors.New("system package installation failed")
	ErrDependencyResolution = errors.New("dependency resolution failed")
	ErrPayload              = errors.New("payload stage failed")
	ErrCommandFailed        = errors.New("command failed")
	ErrCopy                 = errors.New("copy failed")
	ErrFileSystemOperation  = errors.New("file system operation failed")
)
