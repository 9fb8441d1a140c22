package sentry_sender

import (
	"fmt"
)

// ReportField identifies one field of a crash report
type ReportField string

const (
	ReportID             ReportField = "REPORT_ID"
	AppVersionCode       ReportField = "APP_VERSION_CODE"
	AppVersionName       ReportField = "APP_VERSION_NAME"
	PackageName          ReportField = "PACKAGE_NAME"
	FilePath             ReportField = "FILE_PATH"
	PhoneModel           ReportField = "PHONE_MODEL"
	AndroidVersion       ReportField = "ANDROID_VERSION"
	Build                ReportField = "BUILD"
	Brand                ReportField = "BRAND"
	Product              ReportField = "PRODUCT"
	TotalMemSize         ReportField = "TOTAL_MEM_SIZE"
	AvailableMemSize     ReportField = "AVAILABLE_MEM_SIZE"
	BuildConfig          ReportField = "BUILD_CONFIG"
	CustomData           ReportField = "CUSTOM_DATA"
	StackTrace           ReportField = "STACK_TRACE"
	StackTraceHash       ReportField = "STACK_TRACE_HASH"
	InitialConfiguration ReportField = "INITIAL_CONFIGURATION"
	CrashConfiguration   ReportField = "CRASH_CONFIGURATION"
	Display              ReportField = "DISPLAY"
	UserComment          ReportField = "USER_COMMENT"
	UserAppStartDate     ReportField = "USER_APP_START_DATE"
	UserCrashDate        ReportField = "USER_CRASH_DATE"
	DumpsysMeminfo       ReportField = "DUMPSYS_MEMINFO"
	Dropbox              ReportField = "DROPBOX"
	Logcat               ReportField = "LOGCAT"
	EventsLog            ReportField = "EVENTSLOG"
	RadioLog             ReportField = "RADIOLOG"
	IsSilent             ReportField = "IS_SILENT"
	DeviceID             ReportField = "DEVICE_ID"
	InstallationID       ReportField = "INSTALLATION_ID"
	UserEmail            ReportField = "USER_EMAIL"
	DeviceFeatures       ReportField = "DEVICE_FEATURES"
	Environment          ReportField = "ENVIRONMENT"
	SettingsSystem       ReportField = "SETTINGS_SYSTEM"
	SettingsSecure       ReportField = "SETTINGS_SECURE"
	SettingsGlobal       ReportField = "SETTINGS_GLOBAL"
	SharedPreferences    ReportField = "SHARED_PREFERENCES"
	ApplicationLog       ReportField = "APPLICATION_LOG"
	MediaCodecList       ReportField = "MEDIA_CODEC_LIST"
	ThreadDetails        ReportField = "THREAD_DETAILS"
	UserIP               ReportField = "USER_IP"
)

var allReportFields = []ReportField{
	ReportID, AppVersionCode, AppVersionName, PackageName, FilePath, PhoneModel,
	AndroidVersion, Build, Brand, Product, TotalMemSize, AvailableMemSize,
	BuildConfig, CustomData, StackTrace, StackTraceHash, InitialConfiguration,
	CrashConfiguration, Display, UserComment, UserAppStartDate, UserCrashDate,
	DumpsysMeminfo, Dropbox, Logcat, EventsLog, RadioLog, IsSilent, DeviceID,
	InstallationID, UserEmail, DeviceFeatures, Environment, SettingsSystem,
	SettingsSecure, SettingsGlobal, SharedPreferences, ApplicationLog,
	MediaCodecList, ThreadDetails, UserIP,
}

// TagFields are copied into the indexed "tags" object of every event
var TagFields = []ReportField{
	AppVersionCode, AppVersionName, PackageName, FilePath, PhoneModel, Brand,
	Product, AndroidVersion, TotalMemSize, AvailableMemSize, IsSilent,
	InstallationID, Display,
}

// ExtraFields are copied into the free-form "extra" object of every event
var ExtraFields = []ReportField{
	UserAppStartDate, UserCrashDate, UserIP, DeviceFeatures, SettingsSecure,
	CrashConfiguration, Build, Environment, CustomData,
}

// ParseReportField resolves a field name such as "LOGCAT"
func ParseReportField(name string) (ReportField, error) {
	for _, field := range allReportFields {
		if string(field) == name {
			return field, nil
		}
	}
	return "", fmt.Errorf("unknown report field %q", name)
}

// ParseReportFields resolves a list of field names, failing on the first unknown one
func ParseReportFields(names []string) ([]ReportField, error) {
	fields := make([]ReportField, 0, len(names))
	for _, name := range names {
		field, err := ParseReportField(name)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, nil
}
