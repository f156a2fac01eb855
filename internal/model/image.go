package model

// ModelImage 用户上传的模特照片引用，同一设备只有一个
type ModelImage struct {
	URI      string `json:"uri"`
	IsRemote bool   `json:"is_remote"`
}
