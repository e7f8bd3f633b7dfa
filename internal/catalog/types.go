package catalog

// Project is the document served at the catalog base URL.
type Project struct {
	// Versions is ordered by the catalog; the last entry is the newest.
	Versions []string `json:"versions"`
}

// Builds is the build list of one version.
type Builds struct {
	// Builds is ordered by the catalog; the last entry is the newest.
	Builds []Build `json:"builds"`
}

// Build is one entry of a build list.
type Build struct {
	Build uint32 `json:"build"`
}

// DownloadInfo is the document describing one build.
type DownloadInfo struct {
	Downloads Downloads `json:"downloads"`
}

// Downloads lists the files of a build.
type Downloads struct {
	Application Application `json:"application"`
}

// Application is the server jar of a build.
type Application struct {
	Name string `json:"name"`
}
