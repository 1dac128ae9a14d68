package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Run level messages (info)
		"Running %s at %dx%d for %d frames":       "%s を %dx%d で %d フレーム実行中",
		"Reading frames from %s":                  "%s からフレームを読み込み中",
		"Using synthetic pattern source":          "合成パターンソースを使用",
		"Rate profile %d: %d kbps at %d fps from frame %d": "レートプロファイル %[1]d: フレーム %[4]d から %[2]d kbps / %[3]d fps",
		"Processed %d/%d frames":                  "%d/%d フレームを処理しました",
		"Encoded %d frames, decoded %d frames":    "%d フレームをエンコード、%d フレームをデコードしました",
		"Dropped by encoder: %d, by decoder: %d, repeated in output: %d": "エンコーダ欠落: %d, デコーダ欠落: %d, 出力で複製: %d",
		"Average PSNR %.2f dB, SSIM %.4f":         "平均 PSNR %.2f dB, SSIM %.4f",
		"Output saved to %s":                      "出力を %s に保存しました",
		"Run completed successfully":              "実行が正常に完了しました",
		"Interrupted, shutting down...":           "中断されました。シャットダウン中...",

		// Processor (debug)
		"Codecs initialized: %s %dx%d, %d cores":    "コーデック初期化完了: %s %dx%d, %d コア",
		"Encode of frame %d returned %s":            "フレーム %d のエンコード結果: %s",
		"Rates set to %d kbps at %d fps":            "レートを %d kbps / %d fps に設定しました",
		"Encoder dropped %d frames before frame %d": "エンコーダがフレーム %[2]d の前で %[1]d フレームを欠落させました",
		"Repeated frame %d for %d dropped frames":   "欠落した %[2]d フレームの代わりにフレーム %[1]d を複製しました",
		"Released %d input frames before frame %d":  "フレーム %[2]d より前の入力フレーム %[1]d 件を解放しました",

		// Warnings
		"Decode of frame %d returned %s":          "フレーム %d のデコード結果: %s",
		"Input has %d frames, running %d":         "入力は %d フレームのため %d フレームで実行します",

		// Errors
		"Codec contract violated: %s":             "コーデック契約違反: %s",
		"Failed to write output: %s":              "出力の書き込みに失敗しました: %s",
		"Failed to close outputs: %s":             "出力のクローズに失敗しました: %s",
	})
}
