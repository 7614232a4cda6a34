package orders

import "time"

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

const blockTwoDevices = `[12/3/2024, 10:15 م] Sara Shop: اسم العميل: محمد علي
رقم: 01012345678
المحافظة: الجيزة
العنوان: شارع الهرم
بجوار مسجد النور
2 ايفون 16 برو ماكس
اللون: ازرق و سلفر
السعر 15,000
شحن 100
خصم 500
ملحوظة: الاستلام بعد العصر`

const blockTwoPhones = `[12/3/2024, 10:20 م] Sara Shop: الاسم: أحمد حسن
01112223334 / +20 1223334445
القاهرة مدينة نصر
ايفون 15 اسود`

const blockNoIdentity = `[12/3/2024, 10:25 م] Sara Shop: 👍`

const transcript = blockTwoDevices + "\n" + blockTwoPhones + "\n" + blockNoIdentity
