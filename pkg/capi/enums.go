package capi

// APIVersion names a wire generation of the Cloud Controller API.
type APIVersion string

const (
	APIVersionAuto APIVersion = "auto"
	APIVersionV2   APIVersion = "v2"
	APIVersionV3   APIVersion = "v3"
)

// ApplicationState is the desired state of an application.
type ApplicationState string

const (
	ApplicationStarted ApplicationState = "STARTED"
	ApplicationStopped ApplicationState = "STOPPED"
)

// BuildState is the staging state of a build.
type BuildState string

const (
	BuildStaging BuildState = "STAGING"
	BuildStaged  BuildState = "STAGED"
	BuildFailed  BuildState = "FAILED"
)

// PackageState is the upload state of a package.
type PackageState string

const (
	PackageAwaitingUpload   PackageState = "AWAITING_UPLOAD"
	PackageProcessingUpload PackageState = "PROCESSING_UPLOAD"
	PackageReady            PackageState = "READY"
	PackageFailed           PackageState = "FAILED"
	PackageCopying          PackageState = "COPYING"
	PackageExpired          PackageState = "EXPIRED"
)

// PackageType distinguishes bits uploads from docker images.
type PackageType string

const (
	PackageBits   PackageType = "bits"
	PackageDocker PackageType = "docker"
)

// ServiceInstanceType distinguishes brokered instances from user-provided ones.
type ServiceInstanceType string

const (
	ServiceInstanceManaged      ServiceInstanceType = "managed"
	ServiceInstanceUserProvided ServiceInstanceType = "user-provided"
)

// OperationState is the state of a service instance last operation.
type OperationState string

const (
	OperationInProgress OperationState = "in progress"
	OperationSucceeded  OperationState = "succeeded"
	OperationFailed     OperationState = "failed"
)

// OperationType is the kind of a service instance last operation.
type OperationType string

const (
	OperationCreate OperationType = "create"
	OperationUpdate OperationType = "update"
	OperationDelete OperationType = "delete"
)

// Known value sets used when coercing wire enums.
var (
	ApplicationStates    = []ApplicationState{ApplicationStarted, ApplicationStopped}
	BuildStates          = []BuildState{BuildStaging, BuildStaged, BuildFailed}
	PackageStates        = []PackageState{PackageAwaitingUpload, PackageProcessingUpload, PackageReady, PackageFailed, PackageCopying, PackageExpired}
	PackageTypes         = []PackageType{PackageBits, PackageDocker}
	ServiceInstanceTypes = []ServiceInstanceType{ServiceInstanceManaged, ServiceInstanceUserProvided}
	OperationStates      = []OperationState{OperationInProgress, OperationSucceeded, OperationFailed}
	OperationTypes       = []OperationType{OperationCreate, OperationUpdate, OperationDelete}
)
