// Package main provides localization for the codectest CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Input":          "入力",
		"Codec":          "コーデック",
		"Loopback codec": "ループバックコーデック",
		"Measurement":    "計測",
		"Output":         "出力先",
		"Logging":        "ログ",

		// Commands
		"Round-trip raw video through a codec and measure every frame": "生動画をコーデックで往復させ、全フレームを計測",
		"Encode and decode a video, recording per-frame statistics":    "動画をエンコード・デコードし、フレームごとの統計を記録",
		"Show version information":                                     "バージョン情報を表示",
		"codectest version %s":                                         "codectest バージョン %s",

		// Input flags
		"YAML configuration file; flags override it":              "YAML設定ファイル（フラグで上書き可能）",
		"Raw I420 input file":                                     "生I420入力ファイル",
		"Use the synthetic test pattern instead of an input file": "入力ファイルの代わりに合成テストパターンを使用",
		"Frame width in pixels":                                   "フレーム幅（ピクセル）",
		"Frame height in pixels":                                  "フレーム高さ（ピクセル）",
		"Number of frames to process":                             "処理するフレーム数",

		// Codec flags
		"Codec (vp8, vp9, h264)":                                   "コーデック（vp8, vp9, h264）",
		"Target bitrate in kbps for the whole run":                 "実行全体の目標ビットレート（kbps）",
		"Input framerate for the whole run":                        "実行全体の入力フレームレート",
		"Request a key frame every n frames (0 = encoder decides)": "nフレームごとにキーフレームを要求（0 = エンコーダに任せる）",
		"Number of temporal layers (1-3)":                          "時間レイヤー数（1-3）",
		"Limit the codecs to one core":                             "コーデックを1コアに制限",

		// Loopback flags
		"Decoder drops every nth delta frame (0 = none)":     "デコーダがn番目ごとの差分フレームを欠落（0 = なし）",
		"Encoder drops every nth delta frame (0 = none)":     "エンコーダがn番目ごとの差分フレームを欠落（0 = なし）",
		"Divide the decoded width and height by this factor": "デコード後の幅と高さをこの係数で割る",
		"Deliver each encoded frame one frame late":          "エンコード結果を1フレーム遅れて出力",

		// Measurement flags
		"Skip PSNR/SSIM so they do not skew timings": "計時に影響しないようPSNR/SSIMを省略",
		"Feed frames at the input framerate":         "入力フレームレートでフレームを供給",

		// Output flags
		"Write encoded frames to an IVF file":                "エンコード済みフレームをIVFファイルに出力",
		"Write decoded frames to a raw I420 file":            "デコード済みフレームを生I420ファイルに出力",
		"Output execution summary to file (Markdown format)": "実行サマリーをファイルに出力（Markdown形式）",
		"Write per-frame statistics as JSON":                 "フレームごとの統計をJSONで出力",

		// Logging flags
		"Log level (debug, info, warn, error)": "ログレベル（debug, info, warn, error）",
		"Suppress all log output":              "全てのログ出力を抑制",

		// Summary content
		"Codec Run Summary":  "コーデック実行サマリー",
		"Item":               "項目",
		"Value":              "値",
		"Count":              "件数",
		"Resolution":         "解像度",
		"Cores":              "コア数",
		"Elapsed":            "所要時間",
		"Synthetic pattern":  "合成パターン",
		"Frames":             "フレーム",
		"Encoded":            "エンコード済み",
		"Decoded":            "デコード済み",
		"Dropped by encoder": "エンコーダ欠落",
		"Dropped by decoder": "デコーダ欠落",
		"Repeated in output": "出力で複製",
		"Rate Profiles":      "レートプロファイル",
		"Target":             "目標",
		"Bitrate":            "ビットレート",
		"Mismatch":           "誤差",
		"Framerate":          "フレームレート",
		"Key frames":         "キーフレーム数",
		"Avg key frame":      "平均キーフレーム",
		"Avg delta frame":    "平均差分フレーム",
		"Max NAL unit":       "最大NALユニット",
		"Avg QP":             "平均QP",
		"Encode speed":       "エンコード速度",
		"Decode speed":       "デコード速度",
		"PSNR avg/min":       "PSNR 平均/最小",
		"SSIM avg/min":       "SSIM 平均/最小",
		"Total":              "合計",
		"Generated at":       "生成日時",

		"Quality was not measured to keep CPU timings clean.": "CPU計時を優先したため画質は計測していません。",
	})
}
