package model

// FilePayload 随消息上传的原始文件，创建后不可变
type FilePayload struct {
	Name     string
	MimeType string
	Data     []byte
}
