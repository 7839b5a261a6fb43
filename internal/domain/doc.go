// Package domain models Forecast Sensitivity to Observation Impact (FSOI)
// records and the aggregation steps that turn them into summary statistics.
//
// # Data Source
//
// Each forecast center delivers one ASCII file per analysis cycle. Every line
// holds a single observation and its estimated impact on the 24h forecast
// error norm (J/kg):
//
//	PLATFORM OBTYPE CHANNEL LONGITUDE LATITUDE PRESSURE IMPACT OMF OBERR
//	AMSUA_N18 tb 5 -45.25 12.50 -999.0 -1.2e-04 0.31 0.25
//
// The cycle time is not part of the line; it comes from the file name and is
// attached to every row when the file is read. See [ReadASCII].
//
// # Impact Conventions
//
// Negative impact means the observation reduced forecast error (beneficial).
// Impacts whose magnitude is below a small threshold (default 1e-10) are
// neutral, so floating-point noise around zero is not counted as either
// beneficial or detrimental:
//
//	impact <  -threshold             beneficial (ObCntBen)
//	-threshold < impact < threshold  neutral    (ObCntNeu)
//	impact >=  threshold             detrimental (counted only in ObCnt)
//
// # Aggregation Levels
//
// Tables are keyed by [Key], a (cycle, platform, obtype, channel) tuple.
// Aggregation collapses the key hierarchically:
//
//	Table        (cycle, platform, obtype, channel) + location   [BulkStats]
//	BulkTable    (cycle, platform, obtype, channel)              [AccumBulkStats]
//	BulkTable    (cycle, platform)                               [GroupBulkStats]
//	BulkTable    (cycle, canonical platform)                     [TimeAverage]
//	BulkTable    (platform) mean and std over cycles             [SummaryMetrics]
//
// [BinTable] is an alternative terminal path that keeps location, binned on
// a regular latitude/longitude(/pressure) grid.
//
// Every operation is a pure function: it returns a new table and never
// modifies its input.
package domain
