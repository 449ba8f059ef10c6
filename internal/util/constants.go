package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MimeVideo       = "video/"
	MimePDF         = "application/pdf"
	MimeText        = "text/plain"
	MimeOctetStream = "application/octet-stream"
)

const (
	// 单个课程资料上传上限
	MaxLessonUploadSize = 512 << 20
	// AI 出题源文档上限
	MaxSourceDocumentSize = 10 << 20
)

var (
	AllowedVideoExtensions    = []string{".mp4", ".mov", ".avi", ".mkv", ".wmv", ".flv", ".webm"}
	AllowedDocumentExtensions = []string{".txt", ".md", ".vtt", ".srt"}
)
