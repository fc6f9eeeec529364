package loadjob

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsedName is the identity encoded in a job file's name:
// <table_name>.<file_id>.<retry_count>.<file_format>.
//
// Two names with the same (TableName, FileID) but a different RetryCount
// are the same logical job at a different attempt.
type ParsedName struct {
	TableName  string
	FileID     string
	RetryCount uint32
	FileFormat string
}

// ParseName decodes a job file name into its constituent parts.
//
// The table name itself may contain dots; the trailing three
// dot-separated components are always file_id, retry_count and
// file_format, in that order.
func ParseName(name string) (ParsedName, error) {
	parts := strings.Split(name, ".")
	if len(parts) < 4 {
		return ParsedName{}, fmt.Errorf("loadjob: malformed job file name %q", name)
	}
	n := len(parts)
	format := parts[n-1]
	retryStr := parts[n-2]
	fileID := parts[n-3]
	table := strings.Join(parts[:n-3], ".")
	if table == "" || fileID == "" || format == "" {
		return ParsedName{}, fmt.Errorf("loadjob: malformed job file name %q", name)
	}
	retry, err := strconv.ParseUint(retryStr, 10, 32)
	if err != nil {
		return ParsedName{}, fmt.Errorf("loadjob: malformed retry count in %q: %w", name, err)
	}
	return ParsedName{
		TableName:  table,
		FileID:     fileID,
		RetryCount: uint32(retry),
		FileFormat: format,
	}, nil
}

// Encode renders the parsed name back into its on-disk file name form.
func (p ParsedName) Encode() string {
	return fmt.Sprintf("%s.%s.%d.%s", p.TableName, p.FileID, p.RetryCount, p.FileFormat)
}

// JobID is the retry-insensitive identity of the job: table_name.file_id.
func (p ParsedName) JobID() string {
	return p.TableName + "." + p.FileID
}

// WithRetry returns a copy of the parsed name with RetryCount replaced.
func (p ParsedName) WithRetry(retry uint32) ParsedName {
	p.RetryCount = retry
	return p
}
