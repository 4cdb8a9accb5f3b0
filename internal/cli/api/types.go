package api

import "time"

// User is the identity the server reports after login.
type User struct {
	ID        uint   `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type RegisterRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
	User      User   `json:"user"`
}

type MeResponse struct {
	User             User      `json:"user"`
	DisplayName      string    `json:"displayName"`
	TranscriptLength int       `json:"transcriptLength"`
	SessionExpiresAt time.Time `json:"sessionExpiresAt"`
}

type Turn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

type TranscriptResponse struct {
	DisplayName string `json:"displayName"`
	Transcript  []Turn `json:"transcript"`
}

type MessageResponse struct {
	Reply      string `json:"reply"`
	Transcript []Turn `json:"transcript"`
}

type StagedUpload struct {
	StorageLocation string    `json:"storageLocation"`
	FileName        string    `json:"fileName"`
	Size            int64     `json:"size"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

type Record struct {
	ID              uint      `json:"id"`
	FileName        string    `json:"fileName"`
	StorageLocation string    `json:"storageLocation"`
	CreatedAt       time.Time `json:"createdAt"`
}

type RecordText struct {
	ID       uint   `json:"id"`
	FileName string `json:"fileName"`
	Text     string `json:"text"`
}

type ActivityEntry struct {
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resourceType"`
	Details      map[string]interface{} `json:"details,omitempty"`
	IPAddress    string                 `json:"ipAddress"`
	CreatedAt    time.Time              `json:"createdAt"`
}

type VersionInfo struct {
	Version          string `json:"version"`
	APIVersion       string `json:"apiVersion"`
	AssistantModel   string `json:"assistantModel"`
	AssistantEnabled bool   `json:"assistantEnabled"`
}
