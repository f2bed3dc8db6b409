package constants

import "time"

// app loop
const MainRefreshInterval = 5 * time.Minute
const StateRefreshInterval = time.Minute

// lan protocol
const LanScanAddress = "239.255.255.250"
const LanScanPort = 4001
const LanResponsePort = 4002
const LanControlPort = 4003
const LanDiscoveryTimeout = 1500 * time.Millisecond
const LanStatusTimeout = 1200 * time.Millisecond

const LanCmdScan = "scan"
const LanCmdTurn = "turn"
const LanCmdBrightness = "brightness"
const LanCmdColor = "colorwc"
const LanCmdStatus = "devStatus"

const LanMinBrightness = 1
const LanMaxBrightness = 100
const LanMinKelvin = 2000
const LanMaxKelvin = 9000

// cloud protocol
const CloudDefaultBaseURL = "https://openapi.api.govee.com"
const CloudOpenAPIHost = "openapi.api.govee.com"
const CloudAPIKeyHeader = "Govee-API-Key"
const CloudDefaultRetryCount = 3
const CloudBackoffBase = 300 * time.Millisecond
const CloudCodeOK = 200

// capability types
const CapabilityOnOff = "devices.capabilities.on_off"
const CapabilityRange = "devices.capabilities.range"
const CapabilityColorSetting = "devices.capabilities.color_setting"
const CapabilityOnline = "devices.capabilities.online"

// capability instances
const InstancePowerSwitch = "powerSwitch"
const InstanceBrightness = "brightness"
const InstanceColorRgb = "colorRgb"
const InstanceColorTemperatureK = "colorTemperatureK"

// scene application
const SceneRateLimitBackoff = 800 * time.Millisecond
const SceneCommandDelay = 120 * time.Millisecond
const SceneDefaultBrightness = 100
const SceneDefaultKelvin = 4000

// device state refresh
const StateRefreshConcurrency = 3
const StateRefreshDelay = 80 * time.Millisecond
